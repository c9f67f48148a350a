package remote

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mol-cyberwhip/veteranVR/internal/catalog"
)

// ChunkInfo pairs a remote volume with its probe result
type ChunkInfo struct {
	catalog.RemoteChunkFile
	HeadResult
}

// ProbeChunks issues HEAD requests for every chunk with bounded parallelism.
// Results keep the input order; the first failure cancels the rest.
func (c *Client) ProbeChunks(ctx context.Context, chunks []catalog.RemoteChunkFile, parallelism int) ([]ChunkInfo, error) {
	if parallelism < 1 {
		parallelism = 4
	}

	results := make([]ChunkInfo, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i, chunk := range chunks {
		g.Go(func() error {
			head, err := c.Head(gctx, chunk.URL)
			if err != nil {
				return fmt.Errorf("failed to probe chunk %s: %w", chunk.Name, err)
			}
			results[i] = ChunkInfo{RemoteChunkFile: chunk, HeadResult: head}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// TotalKnownBytes sums the lengths the server reported
func TotalKnownBytes(chunks []ChunkInfo) int64 {
	var total int64
	for _, c := range chunks {
		if c.ContentLength > 0 {
			total += c.ContentLength
		}
	}
	return total
}

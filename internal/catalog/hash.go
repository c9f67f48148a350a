package catalog

import (
	"crypto/md5"
	"fmt"
)

// ContentHash returns the remote directory key for a release
func ContentHash(releaseName string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(releaseName+"\n")))
}

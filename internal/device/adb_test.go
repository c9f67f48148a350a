package device

import "testing"

func TestParseDevices(t *testing.T) {
	output := "List of devices attached\n" +
		"1WMHH824D50421\tdevice product:hollywood model:Quest_3 device:eureka transport_id:2\n" +
		"192.168.1.10:5555\toffline transport_id:7\n"

	devices := ParseDevices(output)
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(devices))
	}
	if devices[0].Serial != "1WMHH824D50421" || devices[0].State != "device" || devices[0].Model != "Quest_3" || devices[0].Product != "hollywood" {
		t.Errorf("Unexpected first device: %+v", devices[0])
	}
	if devices[1].Serial != "192.168.1.10:5555" || devices[1].State != "offline" {
		t.Errorf("Unexpected second device: %+v", devices[1])
	}
}

func TestParseDataFreePrefersDataMount(t *testing.T) {
	output := "Filesystem     1K-blocks      Used Available Use% Mounted on\n" +
		"/dev/fuse       120000000  30000000 90000000  25% /storage/emulated\n" +
		"/dev/block/dm-5  64000000  16000000 48000000  25% /data\n"

	free, ok := ParseDataFree(output)
	if !ok {
		t.Fatal("Expected df output to parse")
	}
	if free != 48000000*1024 {
		t.Errorf("Expected %d, got %d", int64(48000000*1024), free)
	}
}

func TestParseDataFreeSuffixes(t *testing.T) {
	free, ok := ParseDataFree("Filesystem Size Used Avail Use% Mounted\n/dev/x 100G 40G 1.5G 40% /data\n")
	if !ok || free != int64(1.5*1024*1024*1024) {
		t.Errorf("Expected 1.5G, got %d %v", free, ok)
	}
	if _, ok := ParseDataFree("garbage"); ok {
		t.Error("Expected garbage not to parse")
	}
}

func TestShellQuote(t *testing.T) {
	if got := shellQuote("/sdcard/a'b"); got != `'/sdcard/a'\''b'` {
		t.Errorf("Unexpected quoting: %s", got)
	}
}

package output

import (
	"Go2Sawzall/internal/config"
	"testing"
)

func TestClickHouseOptions(t *testing.T) {
	opts := clickhouseOptions(config.ClickHouseConfig{Host: "ch.local", Port: 9000, Database: "saw", Username: "u"})
	if len(opts.Addr) != 1 || opts.Addr[0] != "ch.local:9000" {
		t.Errorf("Unexpected address %v", opts.Addr)
	}
	if opts.Auth.Database != "saw" || opts.Auth.Username != "u" {
		t.Errorf("Unexpected auth %+v", opts.Auth)
	}
}

// Package handshake loads the ordered list of application-layer fingerprint
// templates from a YAML definition file (spec.md §4.4, §6). The file format
// mirrors the Rust original's handshake list: an ordered sequence of
// {service, request, response} entries with request/response bytes encoded
// as base64, decoded once at load time so the hot path never touches
// encoding/base64 again.
package handshake

import (
	"encoding/base64"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/eightbitlabs/synprobe/internal/model"
	"github.com/eightbitlabs/synprobe/internal/synerr"
)

// entry is the on-disk shape of one handshake definition.
type entry struct {
	Service  string `yaml:"service"`
	Request  string `yaml:"request"`
	Response string `yaml:"response"`
}

// Load reads and decodes the handshake list at path, preserving file order
// (spec.md §4.4: "handshakes are tried in list order, first match wins").
func Load(path string) ([]model.Handshake, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %v", synerr.ErrHandshakeLoad, path, err)
	}

	var entries []entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: parsing %q: %v", synerr.ErrHandshakeLoad, path, err)
	}

	handshakes := make([]model.Handshake, 0, len(entries))
	for i, e := range entries {
		if e.Service == "" {
			return nil, fmt.Errorf("%w: entry %d in %q has no service name", synerr.ErrHandshakeLoad, i, path)
		}
		req, err := base64.StdEncoding.DecodeString(e.Request)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s) in %q: bad request base64: %v", synerr.ErrHandshakeLoad, i, e.Service, path, err)
		}
		resp, err := base64.StdEncoding.DecodeString(e.Response)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d (%s) in %q: bad response base64: %v", synerr.ErrHandshakeLoad, i, e.Service, path, err)
		}
		handshakes = append(handshakes, model.Handshake{
			Service:  e.Service,
			Request:  req,
			Response: resp,
		})
	}

	return handshakes, nil
}

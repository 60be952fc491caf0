package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainPayload prefixes payload digests. The version suffix allows
// migrating the encoding later.
const DomainPayload = "dutkit/payload/v1"

// Payload is what a completed entity run publishes to a result sink.
type Payload struct {
	Entity   string  `json:"entity"`
	Instance string  `json:"instance"`
	Model    string  `json:"model"`
	Port     string  `json:"port"`
	Samples  Samples `json:"-"`
	Events   Events  `json:"-"`
}

// canonicalMap converts a Payload for MarshalCanonical.
// Complex values are split into [re, im] pairs.
func (p Payload) canonicalMap() map[string]any {
	m := map[string]any{
		"entity":   p.Entity,
		"instance": p.Instance,
		"model":    p.Model,
		"port":     p.Port,
	}
	if p.Samples != nil {
		rows := make([]any, len(p.Samples))
		for i, row := range p.Samples {
			cols := make([]any, len(row))
			for k, v := range row {
				cols[k] = []float64{real(v), imag(v)}
			}
			rows[i] = cols
		}
		m["samples"] = rows
	}
	if p.Events != nil {
		rows := make([]any, len(p.Events))
		for i, ev := range p.Events {
			rows[i] = map[string]any{"time": ev.Time, "values": ev.Values}
		}
		m["events"] = rows
	}
	return m
}

// MarshalCanonical returns the canonical JSON form of the payload.
func (p Payload) MarshalCanonical() ([]byte, error) {
	return MarshalCanonical(p.canonicalMap())
}

// Digest returns the content-addressed digest of the payload's data.
// Instance is excluded so that repeated runs of the same configuration
// produce equal digests when their outputs are equal.
func (p Payload) Digest() (string, error) {
	m := p.canonicalMap()
	delete(m, "instance")
	data, err := MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("payload digest: %w", err)
	}
	return hashWithDomain(DomainPayload, data), nil
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Package id generates opaque identifiers and derives stable ones from names.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate returns prefix-nanoid, e.g. "usr-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if the system has no entropy.
// Only use it during startup.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// BookID derives a book's identity from its slash-separated path relative to the
// library root. The same path always yields the same id, across restarts and hosts.
func BookID(relPath string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(relPath)).String()
}

// SeriesID derives a stable identity for a series from its name.
func SeriesID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("series:"+name)).String()
}

// Package metadata stamps generated reports with run provenance and a
// content hash that can be verified later.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// TagStart is the start of the metadata block.
	TagStart = "<!-- METADATA_START"
	// TagEnd is the end of the metadata block.
	TagEnd = "METADATA_END -->"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata describes the run that produced a document.
type Metadata struct {
	LastModify time.Time
	RunID      string
	Version    string
	InputHash  string
	OutputHash string
	Hash       string
	Seed       uint64
	Rows       int
}

// metadataRegex matches the entire metadata block including tags.
var metadataRegex = regexp.MustCompile(`(?s)<!--\s*METADATA_START\s*\n(.*?)\n\s*METADATA_END\s*-->`)

// Extract removes the metadata block from content and returns both the
// metadata and the cleaned content. The cleaned content is what gets hashed.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	cleanContent := metadataRegex.ReplaceAllString(content, "")
	cleanContent = strings.TrimRight(cleanContent, "\n")

	if len(match) < 2 {
		return nil, cleanContent
	}

	meta := &Metadata{}

	for line := range strings.SplitSeq(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "RUN_ID":
			meta.RunID = val
		case "SEED":
			if seed, err := strconv.ParseUint(val, 10, 64); err == nil {
				meta.Seed = seed
			}
		case "ROWS":
			if rows, err := strconv.Atoi(val); err == nil {
				meta.Rows = rows
			}
		case "INPUT_SHA256":
			meta.InputHash = val
		case "OUTPUT_SHA256":
			meta.OutputHash = val
		case "LAST_MODIFY":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.LastModify = t
			}
		case "HASH":
			meta.Hash = val
		case "VERSION":
			meta.Version = val
		}
	}

	return meta, cleanContent
}

// CalculateHash computes the SHA-256 hash of the content excluding metadata.
func CalculateHash(content string) string {
	_, clean := Extract(content)
	hash := sha256.Sum256([]byte(clean))

	return hex.EncodeToString(hash[:])
}

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sign replaces any metadata block in content with a fresh one built from
// meta. The content hash and, when unset, the timestamp are filled in.
func Sign(content string, meta Metadata) string {
	_, clean := Extract(content)

	meta.Hash = CalculateHash(clean)
	if meta.LastModify.IsZero() {
		meta.LastModify = time.Now()
	}

	var sb strings.Builder

	sb.WriteString("\n\n" + TagStart + "\n")
	writeField(&sb, "RUN_ID", meta.RunID)
	writeField(&sb, "VERSION", meta.Version)
	sb.WriteString("SEED: " + strconv.FormatUint(meta.Seed, 10) + "\n")
	sb.WriteString("ROWS: " + strconv.Itoa(meta.Rows) + "\n")
	writeField(&sb, "INPUT_SHA256", meta.InputHash)
	writeField(&sb, "OUTPUT_SHA256", meta.OutputHash)
	sb.WriteString("LAST_MODIFY: " + meta.LastModify.UTC().Format(time.RFC3339) + "\n")
	sb.WriteString("HASH: " + meta.Hash + "\n")
	sb.WriteString(TagEnd)

	return clean + sb.String()
}

func writeField(sb *strings.Builder, key, val string) {
	if val == "" {
		return
	}

	sb.WriteString(key + ": " + val + "\n")
}

// Verify checks if the content matches the hash in its metadata.
func Verify(content string) (bool, error) {
	meta, clean := Extract(content)
	if meta == nil {
		return false, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return false, ErrNoHashFound
	}

	calculated := CalculateHash(clean)
	if calculated != meta.Hash {
		return false, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return true, nil
}

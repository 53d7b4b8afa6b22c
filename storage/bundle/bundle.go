// Package bundle moves archived contracts between content stores as a
// deterministic TAR file, optionally snappy-framed.
//
// A bundle holds one contracts/<CID> entry per contract, containing its
// canonical text, followed by index.json describing each entry. Import
// reloads every contract and checks that it hashes to its entry name before
// archiving it, so a bundle cannot smuggle in text under a wrong identifier.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/ipfs/go-cid"

	"xdao.co/purse/cidutil"
	"xdao.co/purse/contract"
	"xdao.co/purse/storage"
)

// FormatVersion is the current index schema version.
const FormatVersion = 1

const (
	contractsDir = "contracts/"
	indexName    = "index.json"
)

// ErrIndexMismatch is returned when index.json names a contract the bundle
// does not carry.
var ErrIndexMismatch = errors.New("bundle: index does not match entries")

var epoch0 = time.Unix(0, 0).UTC()

// Entry describes one contract in a bundle.
type Entry struct {
	CID        string `json:"cid"`
	Type       string `json:"type"`
	Hash       string `json:"hash"`
	Signatures int    `json:"signatures"`
	Size       int    `json:"size"`
}

// Label names a contract, typically by the storage path it was saved at.
type Label struct {
	Name string `json:"name"`
	CID  string `json:"cid"`
}

// Index is the content of index.json.
type Index struct {
	Version   int     `json:"version"`
	Contracts []Entry `json:"contracts"`
	Labels    []Label `json:"labels,omitempty"`
}

// ExportOptions controls Export.
type ExportOptions struct {
	// Labels maps names to contracts in the bundle. Non-authoritative.
	Labels map[string]cid.Cid
	// Compress wraps the TAR stream in the snappy framing format.
	Compress bool
}

// Export fetches the contracts named by ids from cas and writes them to w.
// Entry order is lexicographic and headers are normalized, so the same set
// of contracts always produces the same bytes.
func Export(ctx context.Context, w io.Writer, cas storage.CAS, ids []cid.Cid, opts ExportOptions) (Index, error) {
	if cas == nil {
		return Index{}, fmt.Errorf("bundle: nil CAS")
	}

	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return Index{}, storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	labels, err := sortedLabels(opts.Labels, uniq)
	if err != nil {
		return Index{}, err
	}

	var sz *snappy.Writer
	if opts.Compress {
		sz = snappy.NewBufferedWriter(w)
		w = sz
	}
	tw := tar.NewWriter(w)

	idx := Index{Version: FormatVersion, Labels: labels}
	for _, s := range names {
		if err := ctx.Err(); err != nil {
			return Index{}, err
		}
		c := contract.New("")
		if err := c.Fetch(ctx, cas, uniq[s]); err != nil {
			return Index{}, err
		}
		typ, err := contract.TypeOf(c.Raw())
		if err != nil {
			return Index{}, err
		}
		raw := []byte(c.Raw())
		if err := writeFile(tw, contractsDir+s, raw); err != nil {
			return Index{}, err
		}
		idx.Contracts = append(idx.Contracts, Entry{
			CID:        s,
			Type:       typ,
			Hash:       c.HashType(),
			Signatures: len(c.Signatures()),
			Size:       len(raw),
		})
	}

	b, err := json.Marshal(idx)
	if err != nil {
		return Index{}, err
	}
	if err := writeFile(tw, indexName, append(b, '\n')); err != nil {
		return Index{}, err
	}
	if err := tw.Close(); err != nil {
		return Index{}, err
	}
	if sz != nil {
		if err := sz.Close(); err != nil {
			return Index{}, err
		}
	}
	return idx, nil
}

func sortedLabels(in map[string]cid.Cid, carried map[string]cid.Cid) ([]Label, error) {
	if len(in) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(in))
	for k := range in {
		names = append(names, k)
	}
	sort.Strings(names)

	out := make([]Label, 0, len(names))
	for _, k := range names {
		if k == "" {
			return nil, fmt.Errorf("bundle: empty label")
		}
		v := in[k]
		if !v.Defined() {
			return nil, storage.ErrInvalidCID
		}
		if _, ok := carried[v.String()]; !ok {
			return nil, fmt.Errorf("bundle: label %q names %s, which is not exported", k, v)
		}
		out = append(out, Label{Name: k, CID: v.String()})
	}
	return out, nil
}

// ImportOptions controls Import.
type ImportOptions struct {
	// IgnoreUnknown skips entries other than contracts and the index.
	// By default they are an error.
	IgnoreUnknown bool
	// Compressed reads a snappy-framed bundle.
	Compressed bool
}

// Import reads a bundle from r and archives every contract in it into cas.
// It returns the bundle's index, or one built from the entries when the
// bundle carries none.
func Import(ctx context.Context, r io.Reader, cas storage.CAS, opts ImportOptions) (Index, error) {
	if cas == nil {
		return Index{}, fmt.Errorf("bundle: nil CAS")
	}
	if opts.Compressed {
		r = snappy.NewReader(r)
	}

	tr := tar.NewReader(r)
	imported := map[string]Entry{}
	var order []string
	var idx *Index

	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Index{}, err
		}
		if err := ctx.Err(); err != nil {
			return Index{}, err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return Index{}, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return Index{}, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		switch {
		case name == indexName:
			var in Index
			if err := json.NewDecoder(tr).Decode(&in); err != nil {
				return Index{}, fmt.Errorf("bundle: decode index: %w", err)
			}
			if in.Version != FormatVersion {
				return Index{}, fmt.Errorf("bundle: unsupported index version %d", in.Version)
			}
			idx = &in

		case strings.HasPrefix(name, contractsDir):
			e, err := importContract(ctx, cas, strings.TrimPrefix(name, contractsDir), tr)
			if err != nil {
				return Index{}, err
			}
			if _, dup := imported[e.CID]; dup {
				return Index{}, fmt.Errorf("bundle: duplicate contract entry: %s", e.CID)
			}
			imported[e.CID] = e
			order = append(order, e.CID)

		default:
			if !opts.IgnoreUnknown {
				return Index{}, fmt.Errorf("bundle: unknown entry: %s", name)
			}
		}
	}

	if idx == nil {
		built := Index{Version: FormatVersion}
		for _, s := range order {
			built.Contracts = append(built.Contracts, imported[s])
		}
		return built, nil
	}
	for _, e := range idx.Contracts {
		if _, ok := imported[e.CID]; !ok {
			return Index{}, fmt.Errorf("%w: %s", ErrIndexMismatch, e.CID)
		}
	}
	return *idx, nil
}

func importContract(ctx context.Context, cas storage.CAS, name string, r io.Reader) (Entry, error) {
	id, err := cidutil.Parse(name)
	if err != nil {
		return Entry{}, storage.ErrInvalidCID
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return Entry{}, err
	}
	if !cidutil.Matches(id, raw) {
		return Entry{}, storage.ErrCIDMismatch
	}
	typ, err := contract.TypeOf(string(raw))
	if err != nil {
		return Entry{}, err
	}
	c := contract.New(typ)
	if err := c.LoadFromString(string(raw)); err != nil {
		return Entry{}, err
	}
	if err := c.VerifyID(id); err != nil {
		return Entry{}, err
	}
	archived, err := c.Archive(ctx, cas)
	if err != nil {
		return Entry{}, err
	}
	if !archived.Equals(id) {
		return Entry{}, fmt.Errorf("%w: %s archived as %s", storage.ErrCIDMismatch, id, archived)
	}
	return Entry{
		CID:        id.String(),
		Type:       typ,
		Hash:       c.HashType(),
		Signatures: len(c.Signatures()),
		Size:       len(raw),
	}, nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	name = strings.TrimPrefix(strings.TrimPrefix(name, "./"), "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}

// Command contractcas archives signed contracts in a content-addressed store
// and fetches them back, checking that each one hashes to its identifier.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/purse/armor"
	"xdao.co/purse/cidutil"
	"xdao.co/purse/contract"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/storage"
	"xdao.co/purse/storage/bundle"
	"xdao.co/purse/storage/registry"

	_ "xdao.co/purse/storage/grpcstore"
	_ "xdao.co/purse/storage/leveldb"
	_ "xdao.co/purse/storage/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "archive":
		return cmdArchive(args[1:], out, errOut)
	case "fetch":
		return cmdFetch(args[1:], out, errOut)
	case "inspect":
		return cmdInspect(args[1:], out, errOut)
	case "export":
		return cmdExport(args[1:], out, errOut)
	case "import":
		return cmdImport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "contractcas: archive and fetch signed contracts by content identifier")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  contractcas archive --backend localfs --localfs-dir <dir> <file>")
	fmt.Fprintln(w, "  contractcas fetch --backend localfs --localfs-dir <dir> --cid <cid> [--armor] [--out <file>]")
	fmt.Fprintln(w, "  contractcas inspect [--signer <nym file> | --keystore <dir> --nym <name>] [--type <type>] <file>")
	fmt.Fprintln(w, "  contractcas export [common flags] --cid <cid> [--cid ...] [--label name=cid ...] [--compress] --out <file>")
	fmt.Fprintln(w, "  contractcas import [common flags] [--compressed] <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Other backends:")
	fmt.Fprintln(w, "  --backend leveldb --leveldb-dir <dir>")
	fmt.Fprintln(w, "  --backend grpc --grpc-target <host:port>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - input files may be armored")
	fmt.Fprintln(w, "  - the CID hashes the canonical text with the contract's own hash type")
}

type commonFlags struct {
	backend      string
	listBackends bool
}

func (c *commonFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "localfs", "Store backend name")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List supported backends and exit")
	registry.RegisterFlags(fs, registry.UsageCLI)
}

func (c *commonFlags) openCAS() (storage.CAS, func() error, error) {
	s, closeFn, err := registry.Open(c.backend, registry.UsageCLI)
	if err != nil {
		return nil, nil, err
	}
	return storage.ContentStore{Store: s}, closeFn, nil
}

func printBackends(w io.Writer) {
	for _, b := range registry.List(registry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}

// loadContract reads a signed contract of whatever type its bookend names.
func loadContract(path string) (*contract.Contract, error) {
	c, _, err := loadDocument(path)
	return c, err
}

// loadDocument loads path as the variant its type names. file is set for
// signed files.
func loadDocument(path string) (c *contract.Contract, file *contract.SignedFile, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	typ, err := contract.TypeOf(string(b))
	if err != nil {
		return nil, nil, err
	}
	if typ == contract.TypeFile {
		file = contract.NewSignedFile("", "")
		c = file.Contract
	} else {
		c = contract.New(typ)
	}
	if err := c.LoadFromString(string(b)); err != nil {
		return nil, nil, err
	}
	return c, file, nil
}

func cmdArchive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("archive", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: contractcas archive [common flags] <file>")
		return 2
	}

	c, err := loadContract(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := contract.ValidateRules(c, []contract.Rule{contract.SignedRule}); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	id, err := c.Archive(context.Background(), cas)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdFetch(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var cidStr string
	var outPath string
	var armored bool
	fs.StringVar(&cidStr, "cid", "", "CID to fetch")
	fs.StringVar(&outPath, "out", "", "Output file (optional; default stdout)")
	fs.BoolVar(&armored, "armor", false, "Armor the output")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if cidStr == "" {
		fmt.Fprintln(errOut, "missing --cid")
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: contractcas fetch [common flags] --cid <cid> [--armor] [--out <file>]")
		return 2
	}

	id, err := cidutil.Parse(cidStr)
	if err != nil {
		fmt.Fprintln(errOut, storage.ErrInvalidCID)
		return 1
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	c := contract.New("")
	if err := c.Fetch(context.Background(), cas, id); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	text := c.Raw() + "\n"
	if armored {
		typ, err := contract.TypeOf(c.Raw())
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		text = armor.Encode(typ, []byte(c.Raw()))
	}

	if outPath == "" {
		_, _ = io.WriteString(out, text)
		return 0
	}
	if err := os.WriteFile(outPath, []byte(text), 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

func cmdInspect(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var signerPath, keystoreDir, nymName, role, wantType, location string
	fs.StringVar(&signerPath, "signer", "", "File holding the signer's public nym (optional)")
	fs.StringVar(&keystoreDir, "keystore", "", "Key store directory to load the signer from (with -nym)")
	fs.StringVar(&nymName, "nym", "", "Key store nym name of the signer")
	fs.StringVar(&role, "role", "", "Key store role of the signer (optional)")
	fs.StringVar(&wantType, "type", "", "Required contract type (optional)")
	fs.StringVar(&location, "location", "", "Folder/file a signed FILE document must claim (optional)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: contractcas inspect [--signer <nym file> | --keystore <dir> --nym <name> [--role <role>]] [--type <type>] [--location <dir/file>] <file>")
		return 2
	}

	c, file, err := loadDocument(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if location != "" && file == nil {
		fmt.Fprintf(errOut, "-location needs a %s document, got %s\n", contract.TypeFile, c.Type())
		return 2
	}

	_, _ = fmt.Fprintf(out, "Type: %s\n", c.Type())
	_, _ = fmt.Fprintf(out, "Hash: %s\n", c.HashType())
	_, _ = fmt.Fprintf(out, "CID: %s\n", c.ID())
	_, _ = fmt.Fprintf(out, "Signatures: %d\n", len(c.Signatures()))

	code := 0
	if file != nil {
		dir, name := file.PurportedLocation()
		_, _ = fmt.Fprintf(out, "Location: %s/%s\n", dir, name)
		_, _ = fmt.Fprintf(out, "Payload: %d bytes\n", len(file.Payload()))
		if id := file.SignerNymID(); id != "" {
			_, _ = fmt.Fprintf(out, "Signer nym: %s\n", id)
		}
		if location != "" {
			wantDir, wantName := path.Split(location)
			if err := file.VerifyFile(strings.TrimSuffix(wantDir, "/"), wantName); err != nil {
				_, _ = fmt.Fprintf(out, "Rule %s: %v\n", fault.RuleIDOf(err), err)
				code = 1
			}
		}
	}
	rules := []contract.Rule{contract.SignedRule, contract.SignerRule}
	if wantType != "" {
		rules = append([]contract.Rule{contract.TypeRule(wantType)}, rules...)
	}
	for _, err := range contract.ValidateRulesAll(c, rules) {
		_, _ = fmt.Fprintf(out, "Rule %s: %v\n", fault.RuleIDOf(err), err)
		if fault.RuleIDOf(err) == "PURSE-RULE-001" {
			code = 1
		}
	}

	nym, err := loadSigner(signerPath, keystoreDir, nymName, role)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if nym == nil {
		return code
	}
	if !c.Verify(nym) {
		_, _ = fmt.Fprintf(out, "Signer %s: INVALID\n", nym.ID())
		return 1
	}
	_, _ = fmt.Fprintf(out, "Signer %s: ok\n", nym.ID())
	return code
}

// loadSigner returns the nym named on the command line, or nil when none was.
func loadSigner(path, keystoreDir, name, role string) (*keys.Nym, error) {
	switch {
	case path != "" && name != "":
		return nil, errors.New("use either -signer or -keystore/-nym, not both")
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		return keys.ParsePublicNym(strings.TrimSpace(string(b)))
	case name != "":
		ks, err := keys.CreateKeyStore(keystoreDir)
		if err != nil {
			return nil, err
		}
		return ks.LoadNym(name, role)
	}
	return nil, nil
}

func cmdExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var cids multiString
	var labels multiString
	var outPath string
	var compress bool
	fs.Var(&cids, "cid", "Contract CID to export (repeatable)")
	fs.Var(&labels, "label", "name=cid label recorded in the index (repeatable)")
	fs.StringVar(&outPath, "out", "", "Bundle file to write")
	fs.BoolVar(&compress, "compress", false, "Snappy-frame the bundle")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if len(cids) == 0 || outPath == "" || fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: contractcas export [common flags] --cid <cid> [--cid ...] [--label name=cid ...] [--compress] --out <file>")
		return 2
	}

	ids := make([]cid.Cid, 0, len(cids))
	for _, s := range cids {
		id, err := cidutil.Parse(s)
		if err != nil {
			fmt.Fprintln(errOut, storage.ErrInvalidCID)
			return 1
		}
		ids = append(ids, id)
	}
	named := map[string]cid.Cid{}
	for _, l := range labels {
		name, s, ok := strings.Cut(l, "=")
		if !ok || name == "" {
			fmt.Fprintf(errOut, "invalid --label %q\n", l)
			return 2
		}
		id, err := cidutil.Parse(s)
		if err != nil {
			fmt.Fprintln(errOut, storage.ErrInvalidCID)
			return 1
		}
		named[name] = id
	}

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	var buf bytes.Buffer
	idx, err := bundle.Export(context.Background(), &buf, cas, ids, bundle.ExportOptions{Labels: named, Compress: compress})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	_, _ = fmt.Fprintf(out, "exported %d contracts\n", len(idx.Contracts))
	return 0
}

func cmdImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common commonFlags
	common.add(fs)

	var compressed bool
	fs.BoolVar(&compressed, "compressed", false, "Read a snappy-framed bundle")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: contractcas import [common flags] [--compressed] <file>")
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "open %s: %v\n", filepath.Base(fs.Arg(0)), err)
		return 1
	}
	defer f.Close()

	cas, closeFn, err := common.openCAS()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	idx, err := bundle.Import(context.Background(), f, cas, bundle.ImportOptions{Compressed: compressed})
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	for _, e := range idx.Contracts {
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\n", e.CID, e.Type, e.Hash)
	}
	return 0
}

type multiString []string

func (m *multiString) String() string { return strings.Join(*m, ",") }

func (m *multiString) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("empty value")
	}
	*m = append(*m, v)
	return nil
}

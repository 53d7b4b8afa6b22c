package leveldb

import (
	"flag"
	"fmt"

	"xdao.co/purse/storage"
	"xdao.co/purse/storage/registry"
)

var (
	flagDir      string
	flagReadOnly bool
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "leveldb",
		Description: "Embedded goleveldb key-value store",
		Usage:       registry.UsageLibrary | registry.UsageDaemon | registry.UsageCLI,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagDir, "leveldb-dir", "", "LevelDB database directory (for -backend=leveldb)")
			fs.BoolVar(&flagReadOnly, "leveldb-readonly", false, "Open the LevelDB database read-only")
		},
		Open: func() (storage.Store, func() error, error) {
			return open(flagDir, flagReadOnly)
		},
		OpenConfig: func(cfg map[string]string) (storage.Store, func() error, error) {
			return open(cfg["leveldb-dir"], cfg["leveldb-readonly"] == "true")
		},
	})
}

func open(dir string, readOnly bool) (storage.Store, func() error, error) {
	if dir == "" {
		return nil, nil, fmt.Errorf("missing leveldb-dir")
	}
	s, err := Open(dir, readOnly)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

package registry

import (
	"flag"
	"testing"

	"xdao.co/purse/storage"
)

func testBackend(name string, usage Usage) Backend {
	return Backend{
		Name:          name,
		Description:   "test backend",
		Usage:         usage,
		RegisterFlags: func(fs *flag.FlagSet) { fs.String(name+"-opt", "", "test flag") },
		Open: func() (storage.Store, func() error, error) {
			return storage.NewMemStore(), nil, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.Store, func() error, error) {
			return storage.NewMemStore(), nil, nil
		},
	}
}

func TestRegisterValidation(t *testing.T) {
	if err := Register(Backend{}); err == nil {
		t.Fatalf("expected error for unnamed backend")
	}
	b := testBackend("registry-test-missing-open", UsageLibrary)
	b.OpenConfig = nil
	if err := Register(b); err == nil {
		t.Fatalf("expected error for backend without OpenConfig")
	}
	b = testBackend("registry-test-no-usage", 0)
	if err := Register(b); err == nil {
		t.Fatalf("expected error for backend without usage")
	}
}

func TestRegisterListOpen(t *testing.T) {
	MustRegister(testBackend("registry-test-lib", UsageLibrary))
	MustRegister(testBackend("registry-test-daemon", UsageDaemon))

	if err := Register(testBackend("registry-test-lib", UsageLibrary)); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}

	libNames := Names(UsageLibrary)
	var sawLib, sawDaemon bool
	for _, n := range libNames {
		sawLib = sawLib || n == "registry-test-lib"
		sawDaemon = sawDaemon || n == "registry-test-daemon"
	}
	if !sawLib || sawDaemon {
		t.Fatalf("Names(UsageLibrary) = %v", libNames)
	}

	if _, _, err := Open("registry-test-daemon", UsageLibrary); err == nil {
		t.Fatalf("expected usage mismatch error")
	}
	if _, _, err := Open("registry-test-absent", UsageLibrary); err == nil {
		t.Fatalf("expected unknown backend error")
	}
	s, _, err := OpenWithConfig("registry-test-lib", UsageLibrary, map[string]string{})
	if err != nil || s == nil {
		t.Fatalf("OpenWithConfig: got (%v, %v)", s, err)
	}

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	RegisterFlags(fs, UsageDaemon)
	if fs.Lookup("registry-test-daemon-opt") == nil {
		t.Fatalf("daemon backend flag not registered")
	}
	if fs.Lookup("registry-test-lib-opt") != nil {
		t.Fatalf("library backend flag registered for daemon usage")
	}
}

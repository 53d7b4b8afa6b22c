package contract

import (
	"context"

	"xdao.co/purse/armor"
	"xdao.co/purse/fault"
	"xdao.co/purse/keys"
	"xdao.co/purse/storage"
)

// TypeFile is the contract type of a signed file.
const TypeFile = "FILE"

const signedFileVersion = "1.0"

// SignedFile is a payload signed together with the location it claims to be
// stored at, so that a file copied to another path is detected on load.
type SignedFile struct {
	*Contract

	purportedDir  string
	purportedFile string
	signerNymID   string
	payload       string
}

// NewSignedFile returns an empty signed file that lives at dir/file.
func NewSignedFile(dir, file string, opts ...Option) *SignedFile {
	f := &SignedFile{}
	f.Contract = New(TypeFile, append(opts, WithVariant(f))...)
	f.SetLocation(dir, file)
	return f
}

// Payload returns the signed file contents.
func (f *SignedFile) Payload() string { return f.payload }

// SetPayload replaces the contents signed on the next Sign.
func (f *SignedFile) SetPayload(p string) { f.payload = p }

// SignerNymID returns the nym ID recorded as the signer.
func (f *SignedFile) SignerNymID() string { return f.signerNymID }

// SetSignerNymID records s as the signer. Sign fills it in when empty.
func (f *SignedFile) SetSignerNymID(s string) { f.signerNymID = s }

// PurportedLocation returns the location recorded inside the signed body.
func (f *SignedFile) PurportedLocation() (dir, file string) {
	return f.purportedDir, f.purportedFile
}

// VerifyFile checks that the signed body claims to live at dir/file.
func (f *SignedFile) VerifyFile(dir, file string) error {
	if f.purportedDir != dir || f.purportedFile != file {
		return fault.Newf(fault.KindScope, "PURSE-FILE-010",
			"signed file claims %s/%s but was found at %s/%s", f.purportedDir, f.purportedFile, dir, file)
	}
	return nil
}

// Sign stamps the current location into the body and signs it.
func (f *SignedFile) Sign(nym *keys.Nym) error {
	f.purportedDir, f.purportedFile = f.Location()
	if f.signerNymID == "" && nym != nil {
		f.signerNymID = nym.ID()
	}
	f.ReleaseSignatures()
	if err := f.SignContract(nym); err != nil {
		return err
	}
	return f.SaveContract()
}

// SaveFile signs the file and writes it to its location in s.
func (f *SignedFile) SaveFile(ctx context.Context, s storage.Store, nym *keys.Nym) error {
	if err := f.Sign(nym); err != nil {
		return err
	}
	dir, file := f.Location()
	return f.Store(ctx, s, dir, file)
}

// LoadFile reads the file from its location in s and checks that it was
// signed for that location.
func (f *SignedFile) LoadFile(ctx context.Context, s storage.Store) error {
	dir, file := f.Location()
	if err := f.Load(ctx, s, dir, file); err != nil {
		return err
	}
	if err := f.VerifyFile(dir, file); err != nil {
		f.Release()
		return err
	}
	return nil
}

func (f *SignedFile) UpdateContents(*Contract) (string, error) {
	t := NewTag("signedFile").
		Attr("version", signedFileVersion).
		Attr("localDir", f.purportedDir).
		Attr("filename", f.purportedFile)
	if f.signerNymID != "" {
		t.Attr("signer", f.signerNymID)
	}
	if f.payload != "" {
		t.AddText("filePayload", armor.EncodeField([]byte(f.payload)))
	}
	return t.String(), nil
}

func (f *SignedFile) HandleNode(_ *Contract, r NodeReader) (Outcome, error) {
	switch r.Name() {
	case "signedFile":
		f.purportedDir = r.Attr("localDir")
		f.purportedFile = r.Attr("filename")
		f.signerNymID = r.Attr("signer")
		return NodeHandled, nil

	case "filePayload":
		text, err := ElementText(r)
		if err != nil {
			return NodeUnknown, err
		}
		raw, err := armor.DecodeField(text)
		if err != nil {
			return NodeUnknown, err
		}
		f.payload = string(raw)
		return NodeHandled, nil
	}
	return NodeUnknown, nil
}

func (f *SignedFile) Reset() {
	f.purportedDir = ""
	f.purportedFile = ""
	f.signerNymID = ""
	f.payload = ""
}

package provision

import "fmt"

// CipherSuite is a native ZFS encryption algorithm.
type CipherSuite string

const (
	AES256GCM        CipherSuite = "aes-256-gcm"
	AES256CCM        CipherSuite = "aes-256-ccm"
	ChaCha20Poly1305 CipherSuite = "chacha20-poly1305"
)

// EncryptionIntent is the requested at-rest encryption for the root dataset.
type EncryptionIntent struct {
	Enabled  bool        `json:"enabled"`
	Password string      `json:"password,omitempty"`
	Confirm  string      `json:"confirm,omitempty"`
	Suite    CipherSuite `json:"suite,omitempty"`
}

// Validate returns rule violations plus non-blocking warnings. A short
// passphrase is reported but accepted.
func (e EncryptionIntent) Validate() ([]ValidationError, []string) {
	if !e.Enabled {
		return nil, nil
	}
	errs := []ValidationError{}
	warns := []string{}
	if e.Password == "" {
		errs = append(errs, ValidationError{
			Field:   "encryption.password",
			Rule:    "encryption.emptyPassword",
			Message: "encryption password must not be empty",
		})
	} else if e.Password != e.Confirm {
		errs = append(errs, ValidationError{
			Field:   "encryption.confirm",
			Rule:    "encryption.mismatch",
			Message: "encryption passwords do not match",
		})
	} else if len(e.Password) < 8 {
		warns = append(warns, "encryption password is shorter than 8 characters")
	}
	switch e.suite() {
	case AES256GCM, AES256CCM, ChaCha20Poly1305:
	default:
		errs = append(errs, ValidationError{
			Field:   "encryption.suite",
			Rule:    "encryption.unknownSuite",
			Message: fmt.Sprintf("unsupported encryption algorithm %q", string(e.Suite)),
		})
	}
	return errs, warns
}

// Properties returns the dataset properties enabling native encryption with
// an interactively prompted passphrase. Empty when encryption is off.
func (e EncryptionIntent) Properties() map[string]string {
	if !e.Enabled {
		return map[string]string{}
	}
	return map[string]string{
		"encryption":  string(e.suite()),
		"keyformat":   "passphrase",
		"keylocation": "prompt",
	}
}

func (e EncryptionIntent) suite() CipherSuite {
	if e.Suite == "" {
		return AES256GCM
	}
	return e.Suite
}

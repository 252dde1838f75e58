package install

import (
	"fmt"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/debstrap/debstrap/pkg/apt"
)

// AppendStatusEntry appends one dpkg status-database stanza for rec to
// target/var/lib/dpkg/status with the given Status value, matching the
// teacher's packageToInstalled stanza-building pattern
// (pkg/packages/debian/installed.go) generalized with a status string
// argument so stage 1 can write "install ok unpacked" and stage 3's
// dpkg --configure can later flip it to "install ok installed" itself.
func AppendStatusEntry(target string, rec apt.PackageRecord, status string) error {
	block := textproto.MIMEHeader{}
	block.Set("Package", rec.Package)
	block.Set("Version", rec.Version)
	block.Set("Architecture", rec.Architecture)
	if len(rec.Depends) > 0 {
		block.Set("Depends", strings.Join(rec.Depends, ", "))
	}
	if len(rec.PreDepends) > 0 {
		block.Set("Pre-Depends", strings.Join(rec.PreDepends, ", "))
	}
	if len(rec.Provides) > 0 {
		block.Set("Provides", strings.Join(rec.Provides, ", "))
	}
	block.Set("Status", status)

	var sb strings.Builder
	for _, k := range []string{"Package", "Status", "Architecture", "Version", "Pre-Depends", "Depends", "Provides"} {
		if v := block.Get(k); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", k, v)
		}
	}
	sb.WriteString("\n")

	path := filepath.Join(target, "var", "lib", "dpkg", "status")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening dpkg status: %w", err)
	}
	defer f.Close()
	_, err = f.WriteString(sb.String())
	return err
}

// WriteMD5Sums writes target/var/lib/dpkg/info/<package>.md5sums, per
// spec §4.5.
func WriteMD5Sums(target, pkg string, content []byte) error {
	path := filepath.Join(target, "var", "lib", "dpkg", "info", pkg+".md5sums")
	return os.WriteFile(path, content, 0644)
}

// WriteFileList writes target/var/lib/dpkg/info/<package>.list: one
// path per line, per spec §4.5 ("File lists are written to
// info/<package>.list").
func WriteFileList(target, pkg string, paths []string) error {
	path := filepath.Join(target, "var", "lib", "dpkg", "info", pkg+".list")
	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	return os.WriteFile(path, []byte(sb.String()), 0644)
}

// AppendExtendedState records a package as automatically installed
// (pulled in purely as a dependency, not part of the seed set), per
// spec's supplemented Auto-Installed marker feature, grounded on
// original_source/src/install.rs::generate_apt_extended_state.
func AppendExtendedState(target, pkg string) error {
	path := filepath.Join(target, "var", "lib", "apt", "extended_states")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "Package: %s\nAuto-Installed: 1\n\n", pkg)
	return err
}

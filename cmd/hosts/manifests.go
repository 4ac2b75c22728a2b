package hosts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/plode/nmpopup/internal/nativemsg"
	"github.com/plode/nmpopup/pkg/table"
	"github.com/plode/nmpopup/pkg/util"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
)

func (h HostCmd) List(in HostListInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}

	manifests, err := h.manifests.List()
	if err != nil {
		return fmt.Errorf("failed to list hosts: %w", err)
	}

	if in.Output == "json" {
		if manifests == nil {
			manifests = []*nativemsg.Manifest{}
		}
		return util.PrintPrettyJSON(lo.Map(manifests, func(m *nativemsg.Manifest, _ int) manifestView {
			return newManifestView(m)
		}))
	}

	if len(manifests) == 0 {
		pterm.Info.Println("No native messaging hosts found")
		pterm.Info.Printf("Searched: %s\n", util.JoinOrDash(h.manifests.Dirs()...))
		return nil
	}

	rows := pterm.TableData{{"Name", "Path", "Allowed Origins", "Manifest"}}
	for _, m := range manifests {
		rows = append(rows, []string{
			m.Name,
			util.Truncate(m.Path, 60),
			util.JoinOrDash(m.AllowedOrigins...),
			m.File,
		})
	}
	table.PrintTableNoPad(rows, true)
	return nil
}

func (h HostCmd) Show(in HostShowInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}

	m, err := h.manifests.Find(in.Name)
	if err != nil {
		if errors.Is(err, nativemsg.ErrHostNotFound) {
			pterm.Error.Printf("Host %s not found in: %s\n", in.Name, util.JoinOrDash(h.manifests.Dirs()...))
		}
		return fmt.Errorf("failed to find host %s: %w", in.Name, err)
	}

	if in.Output == "json" {
		return util.PrintPrettyJSON(newManifestView(m))
	}

	rows := pterm.TableData{{"Property", "Value"}}
	rows = append(rows, []string{"Name", m.Name})
	rows = append(rows, []string{"Description", util.OrDash(m.Description)})
	rows = append(rows, []string{"Path", m.Path})
	rows = append(rows, []string{"Type", m.Type})
	rows = append(rows, []string{"Allowed Origins", util.JoinOrDash(m.AllowedOrigins...)})
	rows = append(rows, []string{"Manifest", m.File})
	table.PrintTableNoPad(rows, true)

	if err := m.Validate(); err != nil {
		pterm.Warning.Printf("Manifest is invalid: %v\n", err)
	} else if !util.IsExecutable(m.Path) {
		pterm.Warning.Printf("Host binary %s is missing or not executable\n", m.Path)
	}
	return nil
}

func (h HostCmd) Install(in HostInstallInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	if !nativemsg.ValidHostName(in.Name) {
		return fmt.Errorf("invalid host name %q: use lowercase letters, digits, underscores and dots", in.Name)
	}

	path, err := filepath.Abs(in.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", in.Path, err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("host binary %s: %w", path, err)
	}

	m := &nativemsg.Manifest{
		Name:           in.Name,
		Description:    in.Description,
		Path:           path,
		Type:           nativemsg.ManifestType,
		AllowedOrigins: lo.Uniq(lo.Compact(in.Origins)),
	}
	file, err := h.manifests.Install(m)
	if err != nil {
		return fmt.Errorf("failed to install host %s: %w", in.Name, err)
	}
	m.File = file

	if in.Output == "json" {
		return util.PrintPrettyJSON(newManifestView(m))
	}
	pterm.Success.Printf("Installed %s at %s\n", m.Name, file)
	if !util.IsExecutable(path) {
		pterm.Warning.Printf("Host binary %s is not executable\n", path)
	}
	return nil
}

func (h HostCmd) Uninstall(in HostUninstallInput) error {
	file, err := h.manifests.Uninstall(in.Name)
	if err != nil {
		if errors.Is(err, nativemsg.ErrHostNotFound) {
			pterm.Warning.Printf("Host %s is not installed in the user-level directory\n", in.Name)
			return nil
		}
		return fmt.Errorf("failed to uninstall host %s: %w", in.Name, err)
	}
	pterm.Success.Printf("Removed %s\n", file)
	return nil
}

// manifestView is the JSON shape of a manifest, including where it was found.
type manifestView struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins"`
	Manifest       string   `json:"manifest,omitempty"`
}

func newManifestView(m *nativemsg.Manifest) manifestView {
	return manifestView{
		Name:           m.Name,
		Description:    m.Description,
		Path:           m.Path,
		Type:           m.Type,
		AllowedOrigins: m.AllowedOrigins,
		Manifest:       m.File,
	}
}

package main

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/goretk/symfile"
	"github.com/goretk/symfile/internal/journal"
)

// render writes v in the configured format. Text output is produced by text.
func (o *rootOptions) render(w io.Writer, v any, text func(io.Writer) error) error {
	switch o.cfg.Format {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	default:
		return text(w)
	}
}

type attachView struct {
	Image      string       `json:"image" yaml:"image"`
	Arch       string       `json:"arch,omitempty" yaml:"arch,omitempty"`
	SymbolFile string       `json:"symbol_file" yaml:"symbol_file"`
	Format     string       `json:"format" yaml:"format"`
	UUID       string       `json:"uuid" yaml:"uuid"`
	Outcome    string       `json:"outcome" yaml:"outcome"`
	DWARF      bool         `json:"dwarf" yaml:"dwarf"`
	Symbols    int          `json:"symbols" yaml:"symbols"`
	Lookups    []symbolView `json:"lookups,omitempty" yaml:"lookups,omitempty"`
	Message    string       `json:"message" yaml:"message"`
}

type symbolView struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	Size    uint64 `json:"size,omitempty" yaml:"size,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newAttachView(resp *symfile.Response, lookups []string) attachView {
	v := attachView{
		Image:      resp.Image.Path,
		Arch:       resp.Image.Arch,
		SymbolFile: resp.SourcePath,
		Format:     resp.Source.Format.String(),
		UUID:       resp.Identifier.String(),
		Outcome:    resp.Outcome.String(),
		DWARF:      resp.Source.HasDWARF(),
		Symbols:    resp.Source.SymbolCount(),
		Message:    resp.String(),
	}
	for _, name := range lookups {
		sym, err := resp.Source.Symbol(name)
		if err != nil {
			v.Lookups = append(v.Lookups, symbolView{Name: name, Error: err.Error()})
			continue
		}
		v.Lookups = append(v.Lookups, symbolView{
			Name:    sym.Name,
			Address: fmt.Sprintf("%#x", sym.Value),
			Size:    sym.Size,
		})
	}
	return v
}

func writeAttachText(w io.Writer, v attachView) error {
	if _, err := fmt.Fprintln(w, v.Message); err != nil {
		return err
	}
	for _, l := range v.Lookups {
		var err error
		if l.Error != "" {
			_, err = fmt.Fprintf(w, "  %s: %s\n", l.Name, l.Error)
		} else {
			_, err = fmt.Fprintf(w, "  %s: %s size %d\n", l.Name, l.Address, l.Size)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type uuidView struct {
	Path  string `json:"path" yaml:"path"`
	Arch  string `json:"arch" yaml:"arch"`
	Kind  string `json:"kind" yaml:"kind"`
	UUID  string `json:"uuid,omitempty" yaml:"uuid,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func writeUUIDText(w io.Writer, views []uuidView) error {
	for _, v := range views {
		var err error
		if v.Error != "" {
			_, err = fmt.Fprintf(w, "error: %s: %s\n", v.Path, v.Error)
		} else {
			_, err = fmt.Fprintf(w, "UUID: %s (%s) %s\n", v.UUID, v.Arch, v.Path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

type resolveView struct {
	Path       string   `json:"path" yaml:"path"`
	Kind       string   `json:"kind" yaml:"kind"`
	Candidates []string `json:"candidates" yaml:"candidates"`
	Reason     string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func newResolveView(res *symfile.Resolution) resolveView {
	v := resolveView{Path: res.Path, Kind: res.Kind.String(), Reason: res.Reason, Candidates: []string{}}
	for _, c := range res.Candidates {
		v.Candidates = append(v.Candidates, c.Path)
	}
	return v
}

func writeResolveText(w io.Writer, v resolveView) error {
	if _, err := fmt.Fprintf(w, "%s: %s\n", v.Path, v.Kind); err != nil {
		return err
	}
	if v.Reason != "" {
		if _, err := fmt.Fprintf(w, "  reason: %s\n", v.Reason); err != nil {
			return err
		}
	}
	for _, c := range v.Candidates {
		if _, err := fmt.Fprintf(w, "  candidate: %s\n", c); err != nil {
			return err
		}
	}
	return nil
}

func writeHistoryText(w io.Writer, records []journal.Record) error {
	for _, r := range records {
		action := "added"
		if r.Replaced {
			action = "replaced"
		}
		_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s -> %s (%s, %s)\n",
			r.Seq, r.AttachedAt.UTC().Format("2006-01-02T15:04:05Z"), action,
			r.SourcePath, r.ImagePath, r.SourceUUID, r.SourceFormat)
		if err != nil {
			return err
		}
	}
	return nil
}

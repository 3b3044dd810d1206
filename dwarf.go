package symfile

import (
	"debug/dwarf"
	"fmt"
)

// DWARF language codes, https://dwarfstd.org/languages.html
var dwarfLanguages = map[int64]string{
	0x0001: "C89",
	0x0002: "C",
	0x0004: "C++",
	0x000c: "C99",
	0x0010: "ObjC",
	0x0011: "ObjC++",
	0x0016: "Go",
	0x001a: "C++11",
	0x001c: "Rust",
	0x001d: "C11",
	0x001e: "Swift",
	0x0021: "C++14",
}

// CompileUnit summarizes one DWARF compilation unit of a symbol file.
type CompileUnit struct {
	Name      string
	Dir       string
	Producer  string
	Language  string
	Functions int
}

// DWARF entry plus any associated children
type dwarfEntryPlus struct {
	entry    *dwarf.Entry
	children []*dwarfEntryPlus
}

func readCompileUnits(data *dwarf.Data) []CompileUnit {
	var units []CompileUnit
	r := data.Reader()
	for cu := dwarfReadEntry(r); cu != nil; cu = dwarfReadEntry(r) {
		if cu.entry.Tag != dwarf.TagCompileUnit && cu.entry.Tag != dwarf.TagPartialUnit {
			continue
		}
		unit := CompileUnit{
			Name:     dwarfString(cu.entry, dwarf.AttrName),
			Dir:      dwarfString(cu.entry, dwarf.AttrCompDir),
			Producer: dwarfString(cu.entry, dwarf.AttrProducer),
		}
		if lang, ok := cu.entry.Val(dwarf.AttrLanguage).(int64); ok {
			unit.Language, ok = dwarfLanguages[lang]
			if !ok {
				unit.Language = fmt.Sprintf("0x%04x", lang)
			}
		}
		for _, child := range cu.children {
			if child.entry.Tag == dwarf.TagSubprogram {
				unit.Functions++
			}
		}
		units = append(units, unit)
	}
	return units
}

func dwarfString(e *dwarf.Entry, attr dwarf.Attr) string {
	s, _ := e.Val(attr).(string)
	return s
}

func dwarfReadEntry(r *dwarf.Reader) *dwarfEntryPlus {
	entry, _ := r.Next()
	if entry == nil {
		return nil
	}
	var children []*dwarfEntryPlus
	if entry.Children {
		children = dwarfReadChildren(r)
	}
	return &dwarfEntryPlus{
		entry:    entry,
		children: children,
	}
}

func dwarfReadChildren(r *dwarf.Reader) []*dwarfEntryPlus {
	var ret []*dwarfEntryPlus

	for {
		e := dwarfReadEntry(r)
		if e == nil || e.entry.Tag == 0 {
			return ret
		}
		ret = append(ret, e)
	}
}

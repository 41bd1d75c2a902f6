package schemas

import (
	"fmt"

	"github.com/JonMunkholm/dataflow/internal/core"
)

// CatalogName is the registry key of the music catalog schema.
const CatalogName = "catalog"

// catalogRightsBlocks is the number of repeating rights-holder blocks
// (CA, screen name, CAE/IPI, performing and mechanical share).
const catalogRightsBlocks = 6

func init() {
	core.Register(Catalog())
}

// Catalog returns the wide music catalog schema.
func Catalog() core.Schema {
	fields := []core.FieldDescriptor{
		num("id", "ID", true),
		num("sl_no", "Sl No", true),
		text("video_url", "Video URL", false),
		text("isrc", "ISRC", true),
		text("iprs_work_int_no", "IPRS Work Int No", true),
		text("ejnw", "EJNW", true),
		searchable(text("work_title", "Work Title", true)),
		text("alternative_titles", "Alternative Titles", false),
		searchable(text("singer_name", "Singer Name", true)),
		{Key: "release_date", Label: "Release Date", Kind: core.KindDate, Sortable: true, Exported: true},
		text("duration", "Duration", true),
		num("views", "Views", true),
		text("m_k", "M/K", true),
		searchable(text("category", "Category", true)),
		text("tunecode", "Tunecode", true),
		text("iswc", "ISWC", true),
		text("ice_work_key", "ICE Work Key", true),
		text("old_tunecodes", "Old Tunecodes", true),
	}
	for i := 1; i <= catalogRightsBlocks; i++ {
		fields = append(fields, rightsBlock(i)...)
	}

	return core.Schema{
		Name:        CatalogName,
		Title:       "Music Catalog",
		Fields:      fields,
		DefaultSort: "id",
		Summable:    "views",
		MaxTracked:  "views",
		Labels: core.StatLabels{
			Count:   "Total Records",
			Sum:     "Total Views",
			Average: "Avg Views",
			Max:     "Top Views",
		},
		Detail: []core.FieldKey{
			"work_title", "singer_name", "category", "views", "duration", "isrc", "release_date", "id", "sl_no",
		},
		Export: core.ExportLayout{
			FileBase:  "music_catalog",
			SheetName: "Music Data",
			Document: core.DocumentLayout{
				Title:       "Music Catalog Report",
				Orientation: core.Landscape,
				Columns: []core.DocumentColumn{
					{Key: "id", Label: "ID"},
					{Key: "sl_no", Label: "Sl No"},
					{Key: "work_title", Label: "Work Title", Width: 60},
					{Key: "singer_name", Label: "Singer", Width: 40},
					{Key: "category", Label: "Category"},
					{Key: "views", Label: "Views"},
					{Key: "release_date", Label: "Release Date"},
				},
			},
		},
	}
}

// rightsBlock returns the five fields of rights-holder block n.
// The table shows shares as "Per%n"; the spreadsheet header is "Per n".
func rightsBlock(n int) []core.FieldDescriptor {
	key := func(format string) core.FieldKey { return core.FieldKey(fmt.Sprintf(format, n)) }

	per := text(key("per_%d"), fmt.Sprintf("Per%%%d", n), true)
	per.ExportLabel = fmt.Sprintf("Per %d", n)
	mec := text(key("mec_%d"), fmt.Sprintf("Mec%%%d", n), true)
	mec.ExportLabel = fmt.Sprintf("Mec %d", n)

	return []core.FieldDescriptor{
		text(key("ca%d"), fmt.Sprintf("CA%d", n), true),
		text(key("screen_name%d"), fmt.Sprintf("Screen Name%d", n), true),
		text(key("cae_ipi_%d"), fmt.Sprintf("CAE/IPI-%d", n), true),
		per,
		mec,
	}
}

func text(key core.FieldKey, label string, sortable bool) core.FieldDescriptor {
	return core.FieldDescriptor{Key: key, Label: label, Kind: core.KindString, Sortable: sortable, Exported: true}
}

func num(key core.FieldKey, label string, sortable bool) core.FieldDescriptor {
	return core.FieldDescriptor{Key: key, Label: label, Kind: core.KindNumber, Sortable: sortable, Exported: true}
}

func searchable(f core.FieldDescriptor) core.FieldDescriptor {
	f.Searchable = true
	return f
}

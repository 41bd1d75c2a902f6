package schemas

import "github.com/JonMunkholm/dataflow/internal/core"

// PersonName is the registry key of the person schema.
const PersonName = "person"

func init() {
	core.Register(Person())
}

// Person returns the narrow contact-list schema.
func Person() core.Schema {
	return core.Schema{
		Name:  PersonName,
		Title: "People",
		Fields: []core.FieldDescriptor{
			num("id", "ID", true),
			searchable(text("name", "Name", true)),
			searchable(text("email", "Email", true)),
			num("age", "Age", true),
			searchable(text("city", "City", true)),
			text("country", "Country", true),
			text("phone", "Phone", false),
			{Key: "created_at", Label: "Created At", Kind: core.KindDate, Sortable: true, Exported: true},
		},
		DefaultSort: "id",
		Summable:    "age",
		MaxTracked:  "age",
		Labels: core.StatLabels{
			Count:   "Total Records",
			Sum:     "Total Age",
			Average: "Avg Age",
			Max:     "Oldest",
		},
		Detail: []core.FieldKey{"name", "email", "age", "city", "country", "phone", "created_at", "id"},
		Export: core.ExportLayout{
			FileBase:  "data_export",
			SheetName: "Data",
			Document: core.DocumentLayout{
				Title:       "Data Export",
				Orientation: core.Portrait,
				Columns: []core.DocumentColumn{
					{Key: "id", Label: "ID", Width: 15},
					{Key: "name", Label: "Name", Width: 40},
					{Key: "email", Label: "Email", Width: 55},
					{Key: "age", Label: "Age", Width: 15},
					{Key: "city", Label: "City"},
					{Key: "country", Label: "Country"},
				},
			},
		},
	}
}

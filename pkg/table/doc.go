// Package table defines the typed tabular data model shared by the reader,
// the reconciler and the writer.
//
// A Schema fixes column names, their order, their types and the key column.
// Records are checked against the schema once, when they are parsed from
// text with ParseRecord; everything downstream can rely on a Record's values
// lining up with its schema.
//
// Example:
//
//	schema, err := table.NewSchema("id",
//		table.Column{Name: "id", Type: table.TypeInteger},
//		table.Column{Name: "name", Type: table.TypeString},
//		table.Column{Name: "pop", Type: table.TypeInteger},
//	)
//	rec, err := table.ParseRecord(schema, []string{"1", "Honolulu", "371657"})
//	fmt.Println(rec.Key()) // 1
package table

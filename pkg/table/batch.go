package table

// Batch is an ordered sequence of records from one source.
type Batch struct {
	Name    string
	Schema  *Schema
	Records []Record
}

// NewBatch creates an empty batch.
func NewBatch(name string, schema *Schema) *Batch {
	return &Batch{Name: name, Schema: schema}
}

// Append adds records to the end of the batch.
func (b *Batch) Append(records ...Record) {
	b.Records = append(b.Records, records...)
}

// Len returns the number of records. A nil batch is empty.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Records)
}

// Keys returns the key of every record in order.
func (b *Batch) Keys() []string {
	if b == nil {
		return nil
	}
	keys := make([]string, len(b.Records))
	for i, r := range b.Records {
		keys[i] = r.Key()
	}
	return keys
}

// Find returns the first record with the given key.
func (b *Batch) Find(key string) (Record, bool) {
	if b == nil {
		return Record{}, false
	}
	for _, r := range b.Records {
		if r.Key() == key {
			return r, true
		}
	}
	return Record{}, false
}

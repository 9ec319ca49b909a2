package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Collection names used as keys of a backup document.
const (
	CollectionAccounts     = "accounts"
	CollectionCards        = "cards"
	CollectionCategories   = "categories"
	CollectionTransactions = "transactions"
	CollectionGoals        = "goals"
)

// Collections lists every collection in restore order.
var Collections = []string{
	CollectionAccounts,
	CollectionCards,
	CollectionCategories,
	CollectionTransactions,
	CollectionGoals,
}

// Backup is the whole store as one document keyed by collection name.
type Backup struct {
	Accounts     []Account     `json:"accounts"`
	Cards        []Card        `json:"cards"`
	Categories   []Category    `json:"categories"`
	Transactions []Transaction `json:"transactions"`
	Goals        []Goal        `json:"goals"`
}

// Counts reports how many records each collection holds.
func (b Backup) Counts() map[string]int {
	return map[string]int{
		CollectionAccounts:     len(b.Accounts),
		CollectionCards:        len(b.Cards),
		CollectionCategories:   len(b.Categories),
		CollectionTransactions: len(b.Transactions),
		CollectionGoals:        len(b.Goals),
	}
}

// Validate checks every record, so a restore can be refused before the
// store is touched.
func (b Backup) Validate() error {
	for i, a := range b.Accounts {
		if err := a.Validate(); err != nil {
			return recordError(CollectionAccounts, i, err)
		}
	}
	for i, c := range b.Cards {
		if err := c.Validate(); err != nil {
			return recordError(CollectionCards, i, err)
		}
	}
	for i, c := range b.Categories {
		if err := c.Validate(); err != nil {
			return recordError(CollectionCategories, i, err)
		}
	}
	for i, t := range b.Transactions {
		if err := t.Validate(); err != nil {
			return recordError(CollectionTransactions, i, err)
		}
	}
	for i, g := range b.Goals {
		if err := g.Validate(); err != nil {
			return recordError(CollectionGoals, i, err)
		}
	}
	return nil
}

func recordError(collection string, index int, err error) error {
	return &MalformedImportError{Reason: fmt.Sprintf("%s[%d] is invalid", collection, index), Err: err}
}

// ReadBackup decodes and validates a backup document. Unknown collections,
// broken JSON and invalid records all yield a MalformedImportError.
// Collections missing from the document restore as empty.
func ReadBackup(r io.Reader) (Backup, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Backup{}, &MalformedImportError{Reason: "read document", Err: err}
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil {
		return Backup{}, &MalformedImportError{Reason: "not a JSON object", Err: err}
	}
	if sections == nil {
		return Backup{}, &MalformedImportError{Reason: "document is null"}
	}

	known := make(map[string]bool, len(Collections))
	for _, name := range Collections {
		known[name] = true
	}
	var unknown []string
	for name := range sections {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Backup{}, &MalformedImportError{Reason: fmt.Sprintf("unknown collections %v", unknown)}
	}

	var b Backup
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&b); err != nil {
		return Backup{}, &MalformedImportError{Reason: "decode records", Err: err}
	}
	if err := b.Validate(); err != nil {
		return Backup{}, err
	}
	return b, nil
}

// WriteBackup encodes b as indented JSON.
func WriteBackup(w io.Writer, b Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

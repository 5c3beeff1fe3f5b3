package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
)

// JournalEntry records one committed action and the fingerprint of the
// state it produced.
type JournalEntry struct {
	Index       int
	PlayerID    string
	Action      Action
	Fingerprint string
}

// Journal is the ordered record of every committed action of one game.
// Re-applying it to a fresh engine built from the same opening state
// reproduces the game fingerprint for fingerprint. The engine serializes
// all writes; a Journal handed out by the engine is a private copy.
type Journal struct {
	GameID  string
	Seed    int64
	Entries []JournalEntry
}

// NewJournal returns an empty journal for one game.
func NewJournal(gameID string, seed int64) *Journal {
	return &Journal{GameID: gameID, Seed: seed}
}

func (j *Journal) append(playerID string, action Action, fingerprint string) {
	j.Entries = append(j.Entries, JournalEntry{
		Index:       len(j.Entries),
		PlayerID:    playerID,
		Action:      action,
		Fingerprint: fingerprint,
	})
}

// Len reports the number of committed actions.
func (j *Journal) Len() int {
	return len(j.Entries)
}

// Copy returns an independent copy of the journal.
func (j *Journal) Copy() *Journal {
	dup := &Journal{GameID: j.GameID, Seed: j.Seed}
	dup.Entries = append([]JournalEntry(nil), j.Entries...)
	return dup
}

// journalMetadata is the header of an exported journal stream.
type journalMetadata struct {
	GameID     string
	Seed       int64
	Version    int
	EntryCount int
}

const journalVersion = 1

// Export writes the journal to w, gob-encoded inside a gzip stream:
// metadata first, then each entry.
func (j *Journal) Export(w io.Writer) error {
	zw := gzip.NewWriter(w)
	encoder := gob.NewEncoder(zw)

	metadata := journalMetadata{
		GameID:     j.GameID,
		Seed:       j.Seed,
		Version:    journalVersion,
		EntryCount: len(j.Entries),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode journal metadata: %w", err)
	}
	for i := range j.Entries {
		if err := encoder.Encode(&j.Entries[i]); err != nil {
			return fmt.Errorf("failed to encode journal entry %d: %w", i, err)
		}
	}
	return zw.Close()
}

// ImportJournal reads a journal written by Export.
func ImportJournal(r io.Reader) (*Journal, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	decoder := gob.NewDecoder(zr)

	var metadata journalMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode journal metadata: %w", err)
	}
	if metadata.Version != journalVersion {
		return nil, fmt.Errorf("unsupported journal version: %d", metadata.Version)
	}

	journal := NewJournal(metadata.GameID, metadata.Seed)
	for i := 0; i < metadata.EntryCount; i++ {
		var entry JournalEntry
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode journal entry %d: %w", i, err)
		}
		journal.Entries = append(journal.Entries, entry)
	}
	return journal, nil
}

// Journal returns a copy of the actions committed so far.
func (e *Engine) Journal() *Journal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.journal.Copy()
}

// Replay re-applies a recorded journal. The engine must be fresh and
// built from the same opening state: same game id, seed, and decks.
// After every entry the state fingerprint is compared with the recording;
// a mismatch aborts with the diverging index.
func (e *Engine) Replay(j *Journal) error {
	e.mu.Lock()
	if len(e.journal.Entries) != 0 {
		committed := len(e.journal.Entries)
		e.mu.Unlock()
		return fmt.Errorf("replay needs a fresh engine, %d actions already committed", committed)
	}
	if e.gs.GameID != j.GameID || e.gs.Seed != j.Seed {
		gameID, seed := e.gs.GameID, e.gs.Seed
		e.mu.Unlock()
		return fmt.Errorf("journal is for game %s seed %d, engine has game %s seed %d",
			j.GameID, j.Seed, gameID, seed)
	}
	e.mu.Unlock()

	for _, entry := range j.Entries {
		if _, err := e.ApplyAction(entry.PlayerID, entry.Action); err != nil {
			return fmt.Errorf("replay entry %d (%s by %s): %w",
				entry.Index, entry.Action.Kind, entry.PlayerID, err)
		}
		e.mu.Lock()
		applied := e.journal.Entries[len(e.journal.Entries)-1].Fingerprint
		e.mu.Unlock()
		if applied != entry.Fingerprint {
			return fmt.Errorf("replay diverged at entry %d (%s by %s)",
				entry.Index, entry.Action.Kind, entry.PlayerID)
		}
	}
	return nil
}

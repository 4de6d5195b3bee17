package ledger

// journal records undo operations for every state write performed during a
// transaction. Call frames take a snapshot on entry and revert to it on
// failure, so a failing sub-call discards exactly its own writes.
type journal struct {
	entries []func()
}

func (j *journal) append(undo func()) {
	j.entries = append(j.entries, undo)
}

func (j *journal) snapshot() int {
	return len(j.entries)
}

func (j *journal) revertToSnapshot(snapshot int) {
	for i := len(j.entries) - 1; i >= snapshot; i-- {
		j.entries[i]()
	}
	j.entries = j.entries[:snapshot]
}

func (j *journal) reset() {
	j.entries = j.entries[:0]
}

// Put writes value under key in a contract owned map, charging storage gas.
// Values must be treated as immutable once stored: write a new slice rather
// than mutating one in place.
func Put[K comparable, V any](env *Env, m map[K]V, key K, value V) error {
	if err := env.UseGas(StorageWriteGas); err != nil {
		return err
	}

	prev, existed := m[key]
	env.ledger.journal.append(func() {
		if existed {
			m[key] = prev
		} else {
			delete(m, key)
		}
	})
	m[key] = value
	return nil
}

// Delete removes key from a contract owned map, charging storage gas.
func Delete[K comparable, V any](env *Env, m map[K]V, key K) error {
	prev, existed := m[key]
	if !existed {
		return nil
	}
	if err := env.UseGas(StorageWriteGas); err != nil {
		return err
	}

	env.ledger.journal.append(func() {
		m[key] = prev
	})
	delete(m, key)
	return nil
}

// Assign overwrites a contract owned scalar, charging storage gas.
func Assign[T any](env *Env, slot *T, value T) error {
	if err := env.UseGas(StorageWriteGas); err != nil {
		return err
	}

	prev := *slot
	env.ledger.journal.append(func() {
		*slot = prev
	})
	*slot = value
	return nil
}

package keywatch

import (
	"sort"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// KeysGuardLabel is the label key-listing subscriptions record under in the
// rate guard, since they are not bound to a single key.
const KeysGuardLabel = "(keys)"

// keysAdapter reads the full set of currently existing keys. It ignores the
// bound key and is never absent: an empty store reads as an empty set.
type keysAdapter struct{}

func (keysAdapter) Read(st store.Store, _ string) ([]string, error) {
	keys, err := st.Keys()
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	sort.Strings(keys)
	return keys, nil
}

func (keysAdapter) Write(store.Store, string, []string) error {
	panic("keywatch: the key listing cannot be written")
}

// Keys returns the key-listing view: a value holding the sorted set of all
// currently existing keys. It observes every mutation to any key, so it is
// re-read after each one and stays consistent with at most one event's
// latency. An empty store reads as an empty slice, never nil.
//
// Set and Clear panic on the returned value; the listing is read-only.
func (s *Session) Keys() *Value[[]string] {
	return &Value[[]string]{
		session:   s,
		def:       []string{},
		adapter:   keysAdapter{},
		aggregate: true,
	}
}

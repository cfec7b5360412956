package mailbox

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"
)

// PebbleBackend persists mailbox documents into a pebble database on disk.
type PebbleBackend struct {
	db   *pebble.DB
	path string
}

func OpenPebbleBackend(path string) (*PebbleBackend, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("An error occurred when opening mailbox storage...")
		return nil, err
	}
	log.Debug().Str("path", path).Msg("Mailbox storage opened.")
	return &PebbleBackend{db: db, path: path}, nil
}

func (v *PebbleBackend) ready() error {
	if v.db == nil {
		return fmt.Errorf("pebble not opened; call OpenPebbleBackend first")
	}
	return nil
}

func (v *PebbleBackend) Get(key string) ([]byte, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	val, closer, err := v.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}

func (v *PebbleBackend) Set(key string, value []byte) error {
	if err := v.ready(); err != nil {
		return err
	}
	return v.db.Set([]byte(key), value, pebble.Sync)
}

func (v *PebbleBackend) Delete(key string) error {
	if err := v.ready(); err != nil {
		return err
	}
	return v.db.Delete([]byte(key), pebble.Sync)
}

func (v *PebbleBackend) Keys(prefix string) ([]string, error) {
	if err := v.ready(); err != nil {
		return nil, err
	}
	iter, err := v.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []string
	for iter.First(); iter.Valid(); iter.Next() {
		out = append(out, string(iter.Key()))
	}
	return out, iter.Error()
}

func (v *PebbleBackend) Close() error {
	if v.db == nil {
		return nil
	}
	if err := v.db.Close(); err != nil {
		return err
	}
	v.db = nil
	log.Debug().Str("path", v.path).Msg("Mailbox storage closed.")
	return nil
}

func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

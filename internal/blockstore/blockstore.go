// Copyright (c) 2021-2022 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/decred/dcrd/wire"
	"github.com/syndtr/goleveldb/leveldb"
	ldberrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	// blockDbName is the name of the block store database directory.
	blockDbName = "blocks_ldb"
)

// blockKeyPrefix is the prefix of the keys that hold serialized blocks.
var blockKeyPrefix = []byte("blk")

// blockKey returns the database key for the block with the provided hash.
func blockKey(hash *chainhash.Hash) []byte {
	key := make([]byte, len(blockKeyPrefix)+chainhash.HashSize)
	copy(key, blockKeyPrefix)
	copy(key[len(blockKeyPrefix):], hash[:])
	return key
}

// convertLdbErr converts the passed leveldb error into a context error with an
// equivalent error kind and the passed description.  It also sets the passed
// error as the underlying error and adds its error string to the description.
func convertLdbErr(ldbErr error, desc string) ContextError {
	var kind = ErrStore
	switch {
	case ldberrors.IsCorrupted(ldbErr):
		kind = ErrStoreCorruption
	case errors.Is(ldbErr, leveldb.ErrClosed):
		kind = ErrStoreNotOpen
	}

	desc = fmt.Sprintf("%s: %v", desc, ldbErr)
	err := contextError(kind, desc)
	err.RawErr = ldbErr
	return err
}

// Store houses full blocks keyed by their hash in a leveldb database.
//
// It is safe for concurrent access.
type Store struct {
	// db is the database that contains the blocks.  It is set when the
	// instance is created and is not changed afterward.
	db *leveldb.DB
}

// New returns a block store that uses the provided leveldb database for its
// underlying storage.
func New(db *leveldb.DB) *Store {
	return &Store{db: db}
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// Open loads (or creates when needed) the block store database in the
// provided data directory.  The regression test network always starts with a
// clean database.
func Open(net wire.CurrencyNet, dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, blockDbName)

	if net == wire.RegNet {
		if fileExists(dbPath) {
			log.Infof("Removing regression test block database from '%s'",
				dbPath)
			if err := os.RemoveAll(dbPath); err != nil {
				return nil, err
			}
		}
	}

	dbExists := fileExists(dbPath)
	if !dbExists {
		// The error can be ignored here since the call to leveldb.OpenFile
		// will fail if the directory couldn't be created.
		_ = os.MkdirAll(dataDir, 0700)
	}

	log.Infof("Loading block database from '%s'", dbPath)
	opts := opt.Options{
		ErrorIfExist: !dbExists,
		Strict:       opt.DefaultStrict,
		Filter:       filter.NewBloomFilter(10),
	}
	db, err := leveldb.OpenFile(dbPath, &opts)
	if ldberrors.IsCorrupted(err) {
		log.Warnf("Block database is corrupt, attempting recovery: %v", err)
		db, err = leveldb.RecoverFile(dbPath, nil)
	}
	if err != nil {
		return nil, convertLdbErr(err, "failed to open block database")
	}

	log.Info("Block database loaded")
	return New(db), nil
}

// PutBlock stores the provided block under its hash.
func (s *Store) PutBlock(block *wire.MsgBlock) error {
	serialized, err := block.Bytes()
	if err != nil {
		return err
	}
	hash := block.BlockHash()
	if err := s.db.Put(blockKey(&hash), serialized, nil); err != nil {
		str := fmt.Sprintf("failed to store block %v", hash)
		return convertLdbErr(err, str)
	}
	return nil
}

// FetchBlock returns the block with the provided hash.  An error that wraps
// ErrBlockNotFound is returned when the store does not have the block, while
// one that wraps ErrCorruptBlock is returned when the stored data is unusable.
func (s *Store) FetchBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	serialized, err := s.db.Get(blockKey(hash), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			str := fmt.Sprintf("block %v is not stored", hash)
			return nil, contextError(ErrBlockNotFound, str)
		}
		str := fmt.Sprintf("failed to load block %v", hash)
		return nil, convertLdbErr(err, str)
	}

	var block wire.MsgBlock
	if err := block.FromBytes(serialized); err != nil {
		str := fmt.Sprintf("unable to decode stored block %v: %v", hash, err)
		cerr := contextError(ErrCorruptBlock, str)
		cerr.RawErr = err
		return nil, cerr
	}
	if gotHash := block.BlockHash(); gotHash != *hash {
		str := fmt.Sprintf("stored block %v decodes to block %v", hash,
			gotHash)
		return nil, contextError(ErrCorruptBlock, str)
	}
	return &block, nil
}

// DeleteBlock removes the block with the provided hash from the store.  It is
// not an error to delete a block that is not stored.
func (s *Store) DeleteBlock(hash *chainhash.Hash) error {
	if err := s.db.Delete(blockKey(hash), nil); err != nil {
		str := fmt.Sprintf("failed to delete block %v", hash)
		return convertLdbErr(err, str)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

package trie

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	gethtrie "github.com/ethereum/go-ethereum/trie"

	"lstaking/storage"
)

type leaf struct {
	key   []byte
	value []byte
}

// Root computes the Merkle Patricia root over every key under the given
// prefixes, or over the whole database when none are given. Prefixes must
// not overlap. Keys are keccak256 hashed before insertion so the root only
// depends on the key/value set. An empty set yields the canonical empty root.
func Root(db storage.Database, prefixes ...[]byte) (common.Hash, error) {
	if len(prefixes) == 0 {
		prefixes = [][]byte{nil}
	}
	var leaves []leaf
	for _, prefix := range prefixes {
		err := db.Iterate(prefix, func(key, value []byte) bool {
			if len(value) == 0 {
				return true
			}
			leaves = append(leaves, leaf{key: crypto.Keccak256(key), value: value})
			return true
		})
		if err != nil {
			return common.Hash{}, err
		}
	}
	sort.Slice(leaves, func(i, j int) bool { return bytes.Compare(leaves[i].key, leaves[j].key) < 0 })

	st := gethtrie.NewStackTrie(nil)
	for _, l := range leaves {
		if err := st.Update(l.key, l.value); err != nil {
			return common.Hash{}, err
		}
	}
	return st.Hash(), nil
}

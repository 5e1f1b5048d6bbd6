// Package reconcile computes relation changes between the desired and the
// existing membership of a target entity, and collects the resulting deletes
// until the batch is flushed.
package reconcile

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// Diff returns desired minus existing and existing minus desired, identified
// by key. Both results keep the order of their input; duplicates collapse to
// the first occurrence.
func Diff[T any, K comparable](desired, existing []T, key func(T) K) (toCreate, toDelete []T) {
	existingKeys := make(map[K]struct{}, len(existing))
	for _, item := range existing {
		existingKeys[key(item)] = struct{}{}
	}
	desiredKeys := make(map[K]struct{}, len(desired))
	for _, item := range desired {
		k := key(item)
		if _, seen := desiredKeys[k]; seen {
			continue
		}
		desiredKeys[k] = struct{}{}
		if _, ok := existingKeys[k]; !ok {
			toCreate = append(toCreate, item)
		}
	}

	deleted := make(map[K]struct{})
	for _, item := range existing {
		k := key(item)
		if _, ok := desiredKeys[k]; ok {
			continue
		}
		if _, seen := deleted[k]; seen {
			continue
		}
		deleted[k] = struct{}{}
		toDelete = append(toDelete, item)
	}

	return toCreate, toDelete
}

// DiffIDs is Diff over plain ids.
func DiffIDs(desired, existing []string) (toCreate, toDelete []string) {
	return Diff(desired, existing, func(id string) string { return id })
}

// MediaRelationID derives the id of a product-media assignment. The same
// inputs always give the same id so repeated runs do not duplicate media.
func MediaRelationID(productID, mediaID string, position int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%d", productID, mediaID, position)))
	return hex.EncodeToString(sum[:])
}

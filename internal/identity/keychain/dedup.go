// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package keychain

import (
	"context"
	"fmt"
)

// DedupPolicy expires prior keychains of a pair before a new one is issued.
type DedupPolicy struct {
	exempt map[int64]struct{}
}

// NewDedupPolicy builds a policy that skips every KSN in exempt.
func NewDedupPolicy(exempt []int64) *DedupPolicy {
	policy := &DedupPolicy{exempt: make(map[int64]struct{}, len(exempt))}
	for _, ksn := range exempt {
		policy.exempt[ksn] = struct{}{}
	}
	return policy
}

// Exempt reports whether ksn keeps its older keychains on a new sign-in.
func (policy *DedupPolicy) Exempt(ksn int64) bool {
	_, ok := policy.exempt[ksn]
	return ok
}

/*
Apply expires every keychain of (ksn, aidn), whatever its current state.

Returns:
  - int: How many previously ACTIVE keychains were superseded
  - error: Storage failures
*/
func (policy *DedupPolicy) Apply(context context.Context, repository Repository, ksn, aidn int64) (int, error) {
	if policy.Exempt(ksn) {
		return 0, nil
	}

	keychains, err := repository.FindByAccountAndApplication(context, ksn, aidn)
	if err != nil {
		return 0, fmt.Errorf("keychain_dedup_lookup_failed: %w", err)
	}

	superseded := 0
	for _, keychain := range keychains {
		if err := repository.MarkExpired(context, keychain.ID); err != nil {
			return superseded, fmt.Errorf("keychain_dedup_expire_failed: %w", err)
		}
		if keychain.Active() {
			superseded++
		}
	}
	return superseded, nil
}

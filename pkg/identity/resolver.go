// Package identity collapses inconsistent raw identifiers denoting the same
// physical product onto a single canonical identifier.
package identity

import (
	"context"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/tendril/internal/repositories/ledger"
	"github.com/Ramsey-B/tendril/internal/repositories/mapping"
	"github.com/Ramsey-B/tendril/pkg/database"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/normalizers"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Resolver rebuilds the identifier mapping from the full ledger and rewrites
// dependent tables. A batch, offline step: it requires exclusive access to
// the ledger and is never run concurrently with the pipeline.
type Resolver struct {
	db       database.DB
	ledger   *ledger.Repository
	mappings *mapping.Repository
	logger   ectologger.Logger
}

// NewResolver creates an identity resolver
func NewResolver(db database.DB, ledgerRepo *ledger.Repository, mappingRepo *mapping.Repository, logger ectologger.Logger) *Resolver {
	return &Resolver{
		db:       db,
		ledger:   ledgerRepo,
		mappings: mappingRepo,
		logger:   logger,
	}
}

// BuildMappings groups ledger entries by normalized display name and chooses
// one canonical id per group. Pure and deterministic: the canonical id is
// always the lexicographically smallest member, so rebuilding an
// already-rewritten ledger reproduces the same mapping.
func BuildMappings(entries []models.LedgerEntry, now time.Time) []models.IdentifierMapping {
	groups := make(map[string][]models.LedgerEntry)
	for _, entry := range entries {
		normalized := normalizers.NormalizeProductName(entry.DisplayName)
		if normalized == "" {
			continue
		}
		groups[normalized] = append(groups[normalized], entry)
	}

	mappings := make([]models.IdentifierMapping, 0, len(groups))
	for normalized, members := range groups {
		sort.Slice(members, func(i, j int) bool {
			return members[i].CanonicalID < members[j].CanonicalID
		})

		canonical := members[0]
		memberIDs := make([]string, 0, len(members))
		firstSeen := canonical.FirstSeenAt
		for _, m := range members {
			memberIDs = append(memberIDs, m.CanonicalID)
			if m.FirstSeenAt.Before(firstSeen) {
				firstSeen = m.FirstSeenAt
			}
		}

		mappings = append(mappings, models.IdentifierMapping{
			NormalizedName:  normalized,
			CanonicalID:     canonical.CanonicalID,
			OriginalName:    canonical.DisplayName,
			MemberIDs:       database.JSONB[[]string]{Data: memberIDs},
			OccurrenceCount: len(members),
			FirstSeenAt:     firstSeen,
			LastSeenAt:      now,
		})
	}

	sort.Slice(mappings, func(i, j int) bool {
		return mappings[i].NormalizedName < mappings[j].NormalizedName
	})
	return mappings
}

// Rebuild computes the identifier mapping from the current ledger
func (r *Resolver) Rebuild(ctx context.Context) ([]models.IdentifierMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "identity.Resolver.Rebuild")
	defer span.End()

	entries, err := r.ledger.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return BuildMappings(entries, time.Now().UTC()), nil
}

// Apply rewrites the mapping table and collapses duplicate ledger rows in a
// single transaction. Full-table backups are taken before anything is
// mutated; any failure rolls the whole step back, leaving ledger data
// untouched.
func (r *Resolver) Apply(ctx context.Context, mappings []models.IdentifierMapping) error {
	ctx, span := tracing.StartSpan(ctx, "identity.Resolver.Apply")
	defer span.End()

	entries, err := r.ledger.GetAll(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]models.LedgerEntry, len(entries))
	for _, e := range entries {
		byID[e.CanonicalID] = e
	}

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"ledger_entries", "price_history", "identifier_mappings"} {
		if err := database.Backup(ctx, tx, table); err != nil {
			r.logger.WithContext(ctx).WithError(err).Errorf("Failed to back up %s, aborting identity rebuild", table)
			return err
		}
	}

	merged := 0
	for _, m := range mappings {
		members := m.MemberIDs.Data
		if len(members) < 2 {
			continue
		}

		canonical, ok := byID[m.CanonicalID]
		if !ok {
			continue
		}

		absorbed := make([]string, 0, len(members)-1)
		rawIDs := canonical.RawIDs.Data
		firstSeen := canonical.FirstSeenAt
		for _, id := range members {
			if id == m.CanonicalID {
				continue
			}
			member, ok := byID[id]
			if !ok {
				continue
			}
			absorbed = append(absorbed, id)
			rawIDs = appendUnique(rawIDs, id)
			for _, raw := range member.RawIDs.Data {
				rawIDs = appendUnique(rawIDs, raw)
			}
			if member.FirstSeenAt.Before(firstSeen) {
				firstSeen = member.FirstSeenAt
			}
		}

		canonical.RawIDs = database.JSONB[[]string]{Data: rawIDs}
		canonical.FirstSeenAt = firstSeen
		if err := r.ledger.MergeGroup(ctx, tx, &canonical, absorbed); err != nil {
			return err
		}
		merged += len(absorbed)
	}

	if err := r.mappings.ReplaceAll(ctx, tx, mappings); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"mappings": len(mappings),
		"merged":   merged,
	}).Info("Identity rebuild applied")

	return nil
}

// RebuildAndApply runs the full batch step
func (r *Resolver) RebuildAndApply(ctx context.Context) error {
	mappings, err := r.Rebuild(ctx)
	if err != nil {
		return err
	}
	return r.Apply(ctx, mappings)
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

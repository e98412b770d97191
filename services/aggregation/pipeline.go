package aggregation

import (
	"context"
	"errors"
	"fmt"

	"github.com/SirCraft007/grade-api/database/dbctx"
	"github.com/SirCraft007/grade-api/utils"
)

// Mutation performs a write inside the pipeline transaction and returns the ids of the
// subjects whose grades or settings it changed
type Mutation func(dbc dbctx.Context) ([]uint, error)

// Options configures a Pipeline. Zero values fall back to the default weight policy,
// the canonical scheme, an in-process locker and a silent logger.
type Options struct {
	Policy WeightPolicy
	Scheme Scheme
	Locker Locker
	Logger *utils.Logger
}

// Pipeline runs the two-step recomputation: every affected subject first, then the
// owning user. Runs for the same user never interleave.
type Pipeline struct {
	store   Store
	locker  Locker
	subject SubjectAggregator
	user    UserAggregator
	log     *utils.Logger
}

// NewPipeline creates a pipeline over store
func NewPipeline(store Store, opts Options) *Pipeline {
	if opts.Policy == nil {
		opts.Policy = DefaultWeightPolicy()
	}
	if opts.Locker == nil {
		opts.Locker = NewLocalLocker()
	}
	if opts.Logger == nil {
		opts.Logger = utils.NopLogger()
	}
	return &Pipeline{
		store:   store,
		locker:  opts.Locker,
		subject: SubjectAggregator{Policy: opts.Policy, Scheme: opts.Scheme},
		user:    UserAggregator{Scheme: opts.Scheme},
		log:     opts.Logger.With("component", "aggregation"),
	}
}

// Apply runs mutate and the aggregation pipeline for userID as one unit. Either the
// mutation and both aggregation steps are committed, or nothing is. Errors returned by
// mutate are passed through unchanged; storage failures match ErrStorageFailure.
func (p *Pipeline) Apply(ctx context.Context, userID uint, mutate Mutation) (*UserSummary, error) {
	unlock, err := p.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", userID, err)
	}
	defer unlock()

	var summary *UserSummary
	err = p.store.Transaction(ctx, func(dbc dbctx.Context) error {
		if err := p.store.LockUser(dbc, userID); err != nil {
			return storageErr("lock user", err)
		}

		var affected []uint
		if mutate != nil {
			ids, err := mutate(dbc)
			if err != nil {
				return err
			}
			affected = ids
		}

		for _, subjectID := range uniqueIDs(affected) {
			if _, err := p.RecomputeSubject(dbc, userID, subjectID); err != nil {
				// The mutation may have removed the subject itself
				if errors.Is(err, ErrSubjectNotFound) {
					continue
				}
				return err
			}
		}

		s, err := p.RecomputeUser(dbc, userID)
		if err != nil {
			return err
		}
		summary = s
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStorageFailure) {
			p.log.Error("aggregation failed", "user_id", userID, "error", err)
		}
		return nil, err
	}
	return summary, nil
}

// Recompute re-runs the pipeline for userID without a mutation. With no subject ids
// every subject of the user is recomputed.
func (p *Pipeline) Recompute(ctx context.Context, userID uint, subjectIDs ...uint) (*UserSummary, error) {
	return p.Apply(ctx, userID, func(dbc dbctx.Context) ([]uint, error) {
		if len(subjectIDs) > 0 {
			return subjectIDs, nil
		}
		subjects, err := p.store.ListSubjects(dbc, userID)
		if err != nil {
			return nil, storageErr("list subjects", err)
		}
		ids := make([]uint, 0, len(subjects))
		for _, s := range subjects {
			ids = append(ids, s.ID)
		}
		return ids, nil
	})
}

// RecomputeSubject rebuilds and persists the summary of one subject. It must run inside
// a pipeline transaction, before RecomputeUser for the same user.
func (p *Pipeline) RecomputeSubject(dbc dbctx.Context, userID, subjectID uint) (*SubjectSummary, error) {
	subject, err := p.store.GetSubject(dbc, userID, subjectID)
	if err != nil {
		return nil, storageErr("get subject", err)
	}

	grades, err := p.store.ListSubjectGrades(dbc, userID, subjectID)
	if err != nil {
		return nil, storageErr("list grades", err)
	}

	summary := p.subject.Aggregate(*subject, grades)
	if err := p.store.SaveSubjectSummary(dbc, summary); err != nil {
		return nil, storageErr("save subject summary", err)
	}

	p.log.Debug("subject recomputed",
		"user_id", userID,
		"subject_id", subjectID,
		"grades", len(grades),
		"weight", summary.Weight,
	)
	return &summary, nil
}

// RecomputeUser rebuilds and persists the user totals from the stored subject summaries
func (p *Pipeline) RecomputeUser(dbc dbctx.Context, userID uint) (*UserSummary, error) {
	subjects, err := p.store.ListSubjects(dbc, userID)
	if err != nil {
		return nil, storageErr("list subjects", err)
	}

	summary := p.user.Aggregate(userID, subjects)
	if err := p.store.SaveUserSummary(dbc, summary); err != nil {
		return nil, storageErr("save user summary", err)
	}

	p.log.Debug("user recomputed",
		"user_id", userID,
		"subjects", len(subjects),
		"total_average", summary.TotalAverage,
		"total_exams", summary.TotalExams,
	)
	return &summary, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

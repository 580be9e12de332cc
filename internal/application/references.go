package application

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/example/campus-portal/internal/persistence"
)

// maxReferenceAttempts bounds regeneration of request numbers and payment
// references after a uniqueness collision.
const maxReferenceAttempts = 5

// retryOnDuplicate calls attempt until it succeeds, fails with something
// other than persistence.ErrDuplicate, or maxReferenceAttempts is reached.
// The last duplicate error is returned in that case.
func retryOnDuplicate(ctx context.Context, attempt func(n int) error) error {
	var err error
	for n := 0; n < maxReferenceAttempts; n++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = attempt(n)
		if err == nil || !errors.Is(err, persistence.ErrDuplicate) {
			return err
		}
	}
	return err
}

// sequenceFromSuffix derives the four digit part of a request number from a
// random suffix.
func sequenceFromSuffix(suffix string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(suffix))
	return int(h.Sum32() % 10000)
}

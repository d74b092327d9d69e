//go:build property

package broadcast

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBroadcastProperties validates the ordering and delivery guarantees of
// the latest-value channel under concurrent readers.
func TestBroadcastProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	// Property: no reader ever observes an older value after a newer one,
	// and every reader's final observation is the final published value.
	properties.Property("readers observe monotonically newer values", prop.ForAll(
		func(publishCount int, readerCount int) bool {
			if publishCount < 1 || publishCount > 100 || readerCount < 1 || readerCount > 8 {
				return true
			}

			b := New()
			final := fmt.Sprintf("seq-%d", publishCount-1)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			var wg sync.WaitGroup
			violations := make([]bool, readerCount)
			finals := make([]string, readerCount)

			for r := 0; r < readerCount; r++ {
				sub := b.Subscribe()
				wg.Add(1)
				go func(r int) {
					defer wg.Done()
					lastSeq := -1
					for {
						value, err := sub.Next(ctx)
						if err != nil {
							return
						}
						seq, err := strconv.Atoi(strings.TrimPrefix(value, "seq-"))
						if err != nil || seq <= lastSeq {
							violations[r] = true
							return
						}
						lastSeq = seq
						finals[r] = value
						if value == final {
							return
						}
					}
				}(r)
			}

			for i := 0; i < publishCount; i++ {
				b.Publish(fmt.Sprintf("seq-%d", i))
			}

			wg.Wait()

			for r := 0; r < readerCount; r++ {
				if violations[r] || finals[r] != final {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 100),
		gen.IntRange(1, 8),
	))

	// Property: the version counter advances by exactly one per publish and
	// Latest always reflects the most recent publish.
	properties.Property("latest tracks the most recent publish", prop.ForAll(
		func(values []string) bool {
			b := New()
			for i, v := range values {
				b.Publish(v)
				latest, version := b.Latest()
				if latest != v || version != uint64(i+1) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

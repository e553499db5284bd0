package scan

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/barcode-scanner/internal/capture"
	"github.com/zombor/barcode-scanner/internal/confirm"
	"github.com/zombor/barcode-scanner/internal/journal"
)

// mockDB is a mock implementation of journal.DB
type mockDB struct {
	attempts map[string]*journal.Attempt
	saveErr  error
	listErr  error
}

func newMockDB() *mockDB {
	return &mockDB{attempts: make(map[string]*journal.Attempt)}
}

func (m *mockDB) SaveAttempt(attempt *journal.Attempt) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.attempts[attempt.ID] = attempt
	return nil
}

func (m *mockDB) GetAttempt(id string) (*journal.Attempt, error) {
	attempt, ok := m.attempts[id]
	if !ok {
		return nil, journal.ErrNotFound
	}
	return attempt, nil
}

func (m *mockDB) ListAttempts() ([]*journal.Attempt, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	attempts := make([]*journal.Attempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (m *mockDB) Close() error {
	return nil
}

// fixedIDGenerator always returns the same ID
type fixedIDGenerator struct {
	id string
}

func (g *fixedIDGenerator) Generate() string {
	return g.id
}

var _ = Describe("Service", func() {
	var (
		db      *mockDB
		source  *mockSource
		decoder *frameDecoder
		service *Service
		start   time.Time
	)

	BeforeEach(func() {
		db = newMockDB()
		source = &mockSource{steps: values("X", "X", "X")}
		decoder = &frameDecoder{}
		start = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

		loop := &Loop{
			Open: func() (capture.Source, error) {
				return decoder.wrap(source), nil
			},
			Decoder: decoder,
			Config:  confirm.Config{Threshold: 3, Timeout: 20 * time.Second},
			Clock:   &tickingClock{now: start, step: time.Second},
		}
		service = NewServiceWithDeps(loop, db, "0", "zxing", &fixedIDGenerator{id: "attempt-1"})
	})

	Describe("Scan", func() {
		var (
			attempt *journal.Attempt
			err     error
		)

		JustBeforeEach(func() {
			attempt, err = service.Scan(context.Background())
		})

		When("the scan succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the confirmed result", func() {
				Expect(attempt.ID).To(Equal("attempt-1"))
				Expect(attempt.Result.Value()).To(Equal("X"))
				Expect(attempt.Result.Kind).To(Equal(confirm.ConfirmedValue))
			})

			It("should record where the frames came from", func() {
				Expect(attempt.Source).To(Equal("0"))
				Expect(attempt.Decoder).To(Equal("zxing"))
				Expect(attempt.Config.Threshold).To(Equal(3))
			})

			It("should record the session's start and finish times", func() {
				Expect(attempt.StartedAt).To(Equal(start))
				Expect(attempt.StartedAt).To(Equal(attempt.Result.StartedAt))
				Expect(attempt.FinishedAt).To(Equal(attempt.Result.FinishedAt))
				Expect(attempt.FinishedAt.Sub(attempt.StartedAt)).To(Equal(attempt.Result.Elapsed))
			})

			It("should journal the attempt", func() {
				Expect(db.attempts).To(HaveKeyWithValue("attempt-1", attempt))
			})
		})

		When("the journal fails", func() {
			BeforeEach(func() {
				db.saveErr = errors.New("disk full")
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("saving attempt to journal")))
			})

			It("should still return the result", func() {
				Expect(attempt).NotTo(BeNil())
				Expect(attempt.Result.Value()).To(Equal("X"))
			})
		})
	})

	Describe("History", func() {
		When("attempts were journaled", func() {
			It("should list them", func() {
				_, err := service.Scan(context.Background())
				Expect(err).NotTo(HaveOccurred())

				attempts, err := service.History()
				Expect(err).NotTo(HaveOccurred())
				Expect(attempts).To(HaveLen(1))
			})
		})

		When("listing fails", func() {
			It("returns the error", func() {
				db.listErr = errors.New("corrupt")
				_, err := service.History()
				Expect(err).To(MatchError(ContainSubstring("listing attempts")))
			})
		})
	})

	Describe("Attempt", func() {
		It("should return a journaled attempt", func() {
			scanned, err := service.Scan(context.Background())
			Expect(err).NotTo(HaveOccurred())

			attempt, err := service.Attempt("attempt-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(attempt).To(Equal(scanned))
		})

		It("should read the journal without a loop", func() {
			db.attempts["old"] = &journal.Attempt{ID: "old"}
			reader := NewService(nil, db, "", "")

			attempt, err := reader.Attempt("old")
			Expect(err).NotTo(HaveOccurred())
			Expect(attempt.ID).To(Equal("old"))
		})

		It("returns ErrNotFound for unknown IDs", func() {
			_, err := service.Attempt("nope")
			Expect(err).To(MatchError(journal.ErrNotFound))
		})
	})

	When("no journal is configured", func() {
		It("should scan without saving", func() {
			noJournal := NewServiceWithDeps(service.loop, nil, "0", "zxing", &fixedIDGenerator{id: "x"})
			attempt, err := noJournal.Scan(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(attempt.Result.Value()).To(Equal("X"))

			attempts, err := noJournal.History()
			Expect(err).NotTo(HaveOccurred())
			Expect(attempts).To(BeEmpty())
		})
	})
})

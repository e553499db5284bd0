package scan

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/barcode-scanner/internal/capture"
	"github.com/zombor/barcode-scanner/internal/confirm"
	"github.com/zombor/barcode-scanner/internal/journal"
	"github.com/zombor/barcode-scanner/internal/scanning"
)

func writeEAN13(path, value string) {
	matrix, err := oned.NewEAN13Writer().Encode(value, gozxing.BarcodeFormat_EAN_13, 400, 120, nil)
	Expect(err).NotTo(HaveOccurred())
	f, err := os.Create(path)
	Expect(err).NotTo(HaveOccurred())
	defer f.Close()
	Expect(png.Encode(f, matrix)).To(Succeed())
}

var _ = Describe("Integration", func() {
	var (
		tmpDir    string
		framesDir string
		db        *journal.BoltDB
		service   *Service
		threshold int
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		framesDir = filepath.Join(tmpDir, "frames")
		Expect(os.MkdirAll(framesDir, 0755)).To(Succeed())

		var err error
		db, err = journal.NewBoltDB(filepath.Join(tmpDir, "scans.db"))
		Expect(err).NotTo(HaveOccurred())

		// A misread, a blank frame, then the real code over and over
		writeEAN13(filepath.Join(framesDir, "000.png"), "5000112637922")
		Expect(os.WriteFile(filepath.Join(framesDir, "001.png"), []byte("glare"), 0644)).To(Succeed())
		for i := 2; i < 6; i++ {
			writeEAN13(filepath.Join(framesDir, fmt.Sprintf("%03d.png", i)), "4006381333931")
		}
	})

	AfterEach(func() {
		db.Close()
	})

	JustBeforeEach(func() {
		loop := &Loop{
			Open:    capture.Open(framesDir),
			Decoder: scanning.NewZXing(false),
			Config:  confirm.Config{Threshold: threshold, Timeout: time.Minute},
		}
		service = NewService(loop, db, framesDir, "zxing")
	})

	When("the code is seen often enough", func() {
		BeforeEach(func() {
			threshold = 3
		})

		It("should confirm it and journal the attempt", func() {
			attempt, err := service.Scan(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(attempt.Result.Kind).To(Equal(confirm.ConfirmedValue))
			Expect(attempt.Result.Value()).To(Equal("4006381333931"))
			Expect(attempt.Result.Candidate.Symbology).To(Equal(gozxing.BarcodeFormat_EAN_13.String()))

			saved, err := db.GetAttempt(attempt.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(saved.Result.Value()).To(Equal("4006381333931"))
		})
	})

	When("the frames run out first", func() {
		BeforeEach(func() {
			threshold = 10
		})

		It("should fall back to the most frequent code", func() {
			attempt, err := service.Scan(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(attempt.Result.Status).To(Equal(confirm.Exhausted))
			Expect(attempt.Result.Kind).To(Equal(confirm.Plurality))
			Expect(attempt.Result.Value()).To(Equal("4006381333931"))
			Expect(attempt.Result.Votes).To(Equal(4))
		})
	})
})

package scanning

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func whiteImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

var _ = Describe("ZXing", func() {
	var (
		decoder   *ZXing
		img       image.Image
		detection *Detection
		err       error
	)

	BeforeEach(func() {
		decoder = NewZXing(true)
	})

	JustBeforeEach(func() {
		detection, err = decoder.Decode(context.Background(), img)
	})

	When("the frame shows an EAN-13 barcode", func() {
		BeforeEach(func() {
			matrix, encErr := oned.NewEAN13Writer().Encode("4006381333931", gozxing.BarcodeFormat_EAN_13, 400, 120, nil)
			Expect(encErr).NotTo(HaveOccurred())
			img = matrix
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should decode the value", func() {
			Expect(detection).NotTo(BeNil())
			Expect(detection.Value).To(Equal("4006381333931"))
		})

		It("should report the symbology", func() {
			Expect(detection.Symbology).To(Equal(gozxing.BarcodeFormat_EAN_13.String()))
		})
	})

	When("the frame shows a QR code", func() {
		BeforeEach(func() {
			matrix, encErr := qrcode.NewQRCodeWriter().Encode("https://example.com/p/42", gozxing.BarcodeFormat_QR_CODE, 240, 240, nil)
			Expect(encErr).NotTo(HaveOccurred())
			img = matrix
		})

		It("should decode the value", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(detection).NotTo(BeNil())
			Expect(detection.Value).To(Equal("https://example.com/p/42"))
		})

		It("should report a bounding box", func() {
			Expect(detection.Bounds.Empty()).To(BeFalse())
		})
	})

	When("the frame is blank", func() {
		BeforeEach(func() {
			img = whiteImage(320, 240)
		})

		It("should report no detection", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(detection).To(BeNil())
		})
	})
})

var _ = Describe("pointsBounds", func() {
	It("should enclose every point", func() {
		points := []gozxing.ResultPoint{
			gozxing.NewResultPoint(10, 40),
			gozxing.NewResultPoint(90.5, 20),
			gozxing.NewResultPoint(50, 60),
		}
		Expect(pointsBounds(points)).To(Equal(image.Rect(10, 20, 91, 60)))
	})

	It("should be empty without points", func() {
		Expect(pointsBounds(nil)).To(Equal(image.Rectangle{}))
	})
})

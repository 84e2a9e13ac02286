package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/jtolio/streamview/utils"
)

var formats = map[string]utils.SerializedImage{
	"jpeg": {Extension: ".jpg", MIMEType: "image/jpeg"},
	"png":  {Extension: ".png", MIMEType: "image/png"},
	"gif":  {Extension: ".gif", MIMEType: "image/gif"},
	"bmp":  {Extension: ".bmp", MIMEType: "image/bmp"},
	"webp": {Extension: ".webp", MIMEType: "image/webp"},
}

// normalize checks that data is a decodable frame. Frames over
// cfg.MaxBytes are re-encoded as jpeg, shrinking until they fit.
func normalize(data []byte, cfg Config) (*utils.SerializedImage, error) {
	pixels, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Error.New("undecodable frame: %v", err)
	}
	return fit(data, pixels, format, cfg)
}

// readFrame decodes a single frame from r and normalizes it. Decoding stops
// at the end of the encoded image, so r does not have to reach EOF.
func readFrame(r io.Reader, cfg Config) (*utils.SerializedImage, error) {
	var raw bytes.Buffer
	pixels, format, err := image.Decode(io.TeeReader(r, &raw))
	if err != nil {
		return nil, Error.New("undecodable frame: %v", err)
	}
	return fit(raw.Bytes(), pixels, format, cfg)
}

func fit(data []byte, pixels image.Image, format string, cfg Config) (*utils.SerializedImage, error) {
	if cfg.MaxBytes <= 0 || len(data) <= cfg.MaxBytes {
		rv := formats[format]
		rv.Data = data
		return &rv, nil
	}

	var outBuf bytes.Buffer
	for {
		outBuf.Reset()
		err := jpeg.Encode(&outBuf, pixels, &jpeg.Options{Quality: cfg.JPEGQuality})
		if err != nil {
			return nil, Error.Wrap(err)
		}
		if outBuf.Len() <= cfg.MaxBytes {
			break
		}

		scale := math.Sqrt(float64(cfg.MaxBytes) / float64(outBuf.Len()))
		newX := int(float64(pixels.Bounds().Dx()) * scale)
		newY := int(float64(pixels.Bounds().Dy()) * scale)
		if newX < 1 || newY < 1 {
			return nil, Error.New("frame does not fit in %d bytes", cfg.MaxBytes)
		}

		resized := image.NewRGBA(image.Rect(0, 0, newX, newY))
		draw.NearestNeighbor.Scale(resized, resized.Rect, pixels, pixels.Bounds(), draw.Over, nil)
		pixels = resized
	}

	return &utils.SerializedImage{
		Data:      outBuf.Bytes(),
		Extension: ".jpg",
		MIMEType:  "image/jpeg",
	}, nil
}

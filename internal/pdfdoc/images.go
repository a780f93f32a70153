package pdfdoc

import (
	"bytes"
	"image"
	"image/jpeg"
	"sort"

	gopdf "github.com/VantageDataChat/GoPDF2"
)

var (
	jpegMagic = []byte{0xFF, 0xD8}
	pngMagic  = []byte("\x89PNG")
)

// extractImages pulls every embedded raster image from the PDF and
// normalizes each one to an encoded format the rest of the pipeline can
// decode. Images that cannot be normalized are skipped.
func (e *Extractor) extractImages(data []byte) (images []EmbeddedImage) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn("image extraction panicked", "panic", rec)
		}
	}()

	byPage, err := gopdf.ExtractImagesFromAllPages(data)
	if err != nil {
		e.log.Warn("image extraction failed", "error", err)
		return nil
	}

	pageIdxs := make([]int, 0, len(byPage))
	for idx := range byPage {
		pageIdxs = append(pageIdxs, idx)
	}
	sort.Ints(pageIdxs)

	for _, pageIdx := range pageIdxs {
		for i, img := range byPage[pageIdx] {
			if len(img.Data) == 0 {
				continue
			}
			payload, format := e.normalize(img)
			if payload == nil {
				e.log.Debug("skipping undecodable image",
					"page", pageIdx+1, "index", i, "filter", img.Filter)
				continue
			}
			images = append(images, EmbeddedImage{
				Page:   pageIdx + 1,
				Index:  i,
				Data:   payload,
				Format: format,
				Width:  img.Width,
				Height: img.Height,
			})
		}
	}
	return images
}

// normalize turns a raw extracted image into encoded bytes. DCTDecode and
// JPXDecode streams already hold a complete JPEG/JP2 file; FlateDecode
// streams hold bare pixel rows and need re-encoding.
func (e *Extractor) normalize(img gopdf.ExtractedImage) ([]byte, string) {
	switch img.Filter {
	case "DCTDecode":
		return img.Data, "jpg"
	case "JPXDecode":
		return img.Data, "jp2"
	case "FlateDecode":
		if encoded := encodeRawPixels(img.Data, img.Width, img.Height, img.ColorSpace); encoded != nil {
			return encoded, "jpg"
		}
		return nil, ""
	default:
		if bytes.HasPrefix(img.Data, jpegMagic) {
			return img.Data, "jpg"
		}
		if bytes.HasPrefix(img.Data, pngMagic) {
			return img.Data, "png"
		}
		if encoded := encodeRawPixels(img.Data, img.Width, img.Height, img.ColorSpace); encoded != nil {
			return encoded, "jpg"
		}
		return nil, ""
	}
}

// encodeRawPixels converts decompressed pixel rows to a JPEG. Streams
// written with a PNG predictor (Predictor 10..15) carry one filter byte
// per row; those are unfiltered first. Returns nil when the buffer does
// not match either layout.
func encodeRawPixels(data []byte, width, height int, colorSpace string) []byte {
	if width <= 0 || height <= 0 {
		return nil
	}

	channels := 3
	if bytes.Contains([]byte(colorSpace), []byte("Gray")) {
		channels = 1
	}
	rowBytes := width * channels

	pixels := data
	switch {
	case len(data) == (rowBytes+1)*height && len(data) != rowBytes*height:
		pixels = unfilterRows(data, rowBytes, height, channels)
		if pixels == nil {
			return nil
		}
	case len(data) < rowBytes*height:
		return nil
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := pixels[y*rowBytes:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < width; x++ {
			if channels == 1 {
				g := src[x]
				dst[x*4], dst[x*4+1], dst[x*4+2] = g, g, g
			} else {
				dst[x*4], dst[x*4+1], dst[x*4+2] = src[x*3], src[x*3+1], src[x*3+2]
			}
			dst[x*4+3] = 0xFF
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil
	}
	return buf.Bytes()
}

// unfilterRows reverses the per-row PNG filters (None, Sub, Up, Average,
// Paeth) and returns the bare pixel rows without the filter bytes.
func unfilterRows(data []byte, rowBytes, height, channels int) []byte {
	out := make([]byte, rowBytes*height)
	stride := rowBytes + 1

	for y := 0; y < height; y++ {
		row := data[y*stride : (y+1)*stride]
		cur := out[y*rowBytes : (y+1)*rowBytes]
		var prev []byte
		if y > 0 {
			prev = out[(y-1)*rowBytes : y*rowBytes]
		}

		filtered := row[1:]
		switch row[0] {
		case 0:
			copy(cur, filtered)
		case 1:
			for i := range cur {
				cur[i] = filtered[i] + left(cur, i, channels)
			}
		case 2:
			for i := range cur {
				cur[i] = filtered[i] + up(prev, i)
			}
		case 3:
			for i := range cur {
				cur[i] = filtered[i] + byte((int(left(cur, i, channels))+int(up(prev, i)))/2)
			}
		case 4:
			for i := range cur {
				cur[i] = filtered[i] + paeth(left(cur, i, channels), up(prev, i), upLeft(prev, i, channels))
			}
		default:
			return nil
		}
	}
	return out
}

func left(row []byte, i, channels int) byte {
	if i < channels {
		return 0
	}
	return row[i-channels]
}

func up(prev []byte, i int) byte {
	if prev == nil {
		return 0
	}
	return prev[i]
}

func upLeft(prev []byte, i, channels int) byte {
	if prev == nil || i < channels {
		return 0
	}
	return prev[i-channels]
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

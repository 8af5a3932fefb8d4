package rumpu

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wav converts a stereo buffer into a .wav file, returned as a byte slice.
// If pcm16 is true, the samples are converted to 16-bit signed integers;
// otherwise the file contains the raw IEEE floats.
func (buf AudioBuffer) Wav(pcm16 bool) ([]byte, error) {
	b := new(bytes.Buffer)
	wavHeader(len(buf)*2, pcm16, b)
	err := rawToBuffer(buf, pcm16, b)
	if err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return b.Bytes(), nil
}

// Raw converts a stereo buffer into interleaved raw samples, without a
// header, either 16-bit signed integers or IEEE floats.
func (buf AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	b := new(bytes.Buffer)
	err := rawToBuffer(buf, pcm16, b)
	if err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return b.Bytes(), nil
}

func rawToBuffer(data AudioBuffer, pcm16 bool, buf *bytes.Buffer) error {
	var err error
	if pcm16 {
		int16data := make([]int16, len(data)*2)
		for i, v := range data {
			int16data[i*2] = int16(clampInt(int(v[0]*math.MaxInt16), math.MinInt16, math.MaxInt16))
			int16data[i*2+1] = int16(clampInt(int(v[1]*math.MaxInt16), math.MinInt16, math.MaxInt16))
		}
		err = binary.Write(buf, binary.LittleEndian, int16data)
	} else {
		err = binary.Write(buf, binary.LittleEndian, data)
	}
	if err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %w", err)
	}
	return nil
}

// wavHeader writes a wave header for either float32 or int16 .wav file into
// the bytes.Buffer. bufferLength is the total number of samples (L + R, so
// twice the number of frames). pcm16 = true means the header is for int16
// audio; pcm16 = false means float32 audio. Assumes 44100 Hz.
func wavHeader(bufferLength int, pcm16 bool, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	numChannels := 2
	sampleRate := SampleRate
	var bytesPerSample, chunkSize, fmtChunkSize, waveFormat int
	var factChunk bool
	if pcm16 {
		bytesPerSample = 2
		chunkSize = 36 + bytesPerSample*bufferLength
		fmtChunkSize = 16
		waveFormat = 1 // PCM
		factChunk = false
	} else {
		bytesPerSample = 4
		chunkSize = 50 + bytesPerSample*bufferLength
		fmtChunkSize = 18
		waveFormat = 3 // IEEE float
		factChunk = true
	}
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(chunkSize))
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(fmtChunkSize))
	binary.Write(buf, binary.LittleEndian, uint16(waveFormat))
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	if fmtChunkSize > 16 {
		binary.Write(buf, binary.LittleEndian, uint16(0)) // size of extension
	}
	if factChunk {
		buf.Write([]byte("fact"))
		binary.Write(buf, binary.LittleEndian, uint32(4))            // fact chunk size
		binary.Write(buf, binary.LittleEndian, uint32(bufferLength)) // sample length
	}
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(bytesPerSample*bufferLength))
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Package upload plans and executes multipart transfers of a local
// source file to presigned part destinations.
package upload

import (
	"errors"
	"fmt"

	"mediaboost/internal/domain"
)

// Plan splits totalSize bytes into partCount contiguous ranges. The
// ranges partition [0, totalSize) exactly: no byte is covered twice or
// skipped, and the last part absorbs the remainder of the integer
// division. partCount must not exceed totalSize, otherwise some part
// would be empty and the remote completion call would reject it.
func Plan(totalSize int64, partCount int) ([]domain.Part, error) {
	if totalSize <= 0 {
		return nil, errors.New("upload: total size must be positive")
	}
	if partCount < 1 {
		return nil, fmt.Errorf("upload: invalid part count %d", partCount)
	}
	if int64(partCount) > totalSize {
		return nil, fmt.Errorf("upload: part count %d exceeds total size %d", partCount, totalSize)
	}

	partSize := (totalSize + int64(partCount) - 1) / int64(partCount)
	if partSize*int64(partCount-1) >= totalSize {
		// Tiny file relative to the part count: the rounded-up part
		// size would leave trailing parts empty, so spread the bytes
		// evenly instead.
		return planBalanced(totalSize, partCount), nil
	}

	parts := make([]domain.Part, 0, partCount)
	for i := 0; i < partCount; i++ {
		start := int64(i) * partSize
		end := start + partSize
		if end > totalSize {
			end = totalSize
		}
		parts = append(parts, domain.Part{
			Number: i + 1,
			Offset: start,
			Length: end - start,
		})
	}
	return parts, nil
}

func planBalanced(totalSize int64, partCount int) []domain.Part {
	base := totalSize / int64(partCount)
	rem := totalSize % int64(partCount)
	parts := make([]domain.Part, 0, partCount)
	var start int64
	for i := 0; i < partCount; i++ {
		length := base
		if int64(i) < rem {
			length++
		}
		parts = append(parts, domain.Part{
			Number: i + 1,
			Offset: start,
			Length: length,
		})
		start += length
	}
	return parts
}

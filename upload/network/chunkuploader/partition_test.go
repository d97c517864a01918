package chunkuploader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition(t *testing.T) {
	tests := []struct {
		name        string
		fileSize    int64
		segmentSize int64
		want        []Segment
		wantErr     bool
	}{
		{
			name:        "empty file",
			fileSize:    0,
			segmentSize: 10,
			want:        []Segment{},
		},
		{
			name:        "smaller than one segment",
			fileSize:    7,
			segmentSize: 10,
			want:        []Segment{{Index: 0, Start: 0, End: 7}},
		},
		{
			name:        "exact multiple",
			fileSize:    20,
			segmentSize: 10,
			want: []Segment{
				{Index: 0, Start: 0, End: 10},
				{Index: 1, Start: 10, End: 20},
			},
		},
		{
			name:        "remainder in last segment",
			fileSize:    25,
			segmentSize: 10,
			want: []Segment{
				{Index: 0, Start: 0, End: 10},
				{Index: 1, Start: 10, End: 20},
				{Index: 2, Start: 20, End: 25},
			},
		},
		{
			name:        "zero segment size",
			fileSize:    25,
			segmentSize: 0,
			wantErr:     true,
		},
		{
			name:        "negative file size",
			fileSize:    -1,
			segmentSize: 10,
			wantErr:     true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Partition(tt.fileSize, tt.segmentSize)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPartition_InvalidSegmentSizeIsDetectable(t *testing.T) {
	_, err := Partition(100, -5)

	assert.ErrorIs(t, err, ErrInvalidSegmentSize)
}

func TestPartition_CoversFileWithoutGapsOrOverlaps(t *testing.T) {
	segmentSizes := []int64{1, 3, 7, 64, 1000}
	fileSizes := []int64{1, 2, 63, 64, 65, 999, 1000, 1001, 4096, 10007}

	for _, segmentSize := range segmentSizes {
		for _, fileSize := range fileSizes {
			segments, err := Partition(fileSize, segmentSize)
			require.NoError(t, err)

			wantCount := int((fileSize + segmentSize - 1) / segmentSize)
			require.Len(t, segments, wantCount, "size=%d segment=%d", fileSize, segmentSize)
			require.Equal(t, wantCount, Count(fileSize, segmentSize))

			var next, total int64
			for i, segment := range segments {
				assert.Equal(t, i, segment.Index)
				assert.Equal(t, next, segment.Start, "gap or overlap at segment %d", i)
				assert.Greater(t, segment.Len(), int64(0))
				assert.LessOrEqual(t, segment.Len(), segmentSize)
				next = segment.End
				total += segment.Len()
			}
			assert.Equal(t, fileSize, next)
			assert.Equal(t, fileSize, total)

			last := segments[len(segments)-1]
			wantLast := fileSize % segmentSize
			if wantLast == 0 {
				wantLast = segmentSize
			}
			assert.Equal(t, wantLast, last.Len())
		}
	}
}

func TestPartition_TenMebibytes(t *testing.T) {
	segments, err := Partition(10*1024*1024, DefaultSegmentSize)
	require.NoError(t, err)

	require.Len(t, segments, 2)
	assert.Equal(t, Segment{Index: 0, Start: 0, End: DefaultSegmentSize}, segments[0])
	assert.Equal(t, Segment{Index: 1, Start: DefaultSegmentSize, End: 2 * DefaultSegmentSize}, segments[1])
}

func TestPercent(t *testing.T) {
	tests := []struct {
		done, total int
		want        int
	}{
		{done: 1, total: 2, want: 50},
		{done: 2, total: 2, want: 100},
		{done: 1, total: 3, want: 33},
		{done: 2, total: 3, want: 67},
		{done: 1, total: 8, want: 13},
		{done: 0, total: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percent(tt.done, tt.total), "Percent(%d, %d)", tt.done, tt.total)
	}
}

package upload

// Strategy is the way a selected file is transferred.
type Strategy int

const (
	// StrategyWholeFile sends the file in a single request.
	StrategyWholeFile Strategy = iota
	// StrategySegmented sends the file as ordered byte-range segments.
	StrategySegmented
)

func (s Strategy) String() string {
	switch s {
	case StrategyWholeFile:
		return "whole-file"
	case StrategySegmented:
		return "segmented"
	default:
		return "unknown"
	}
}

// SelectStrategy picks whole-file transfer for files up to and including threshold bytes,
// segmented transfer above it.
func SelectStrategy(fileSize, threshold int64) Strategy {
	if fileSize > threshold {
		return StrategySegmented
	}
	return StrategyWholeFile
}

package prompt

// AudioScanner incrementally extracts codec tokens from a generated stream.
// Unlike ExtractAudioTokens it keeps region state across calls, so chunk
// boundaries may fall anywhere in the token stream.
type AudioScanner struct {
	inRegion bool
	done     bool
}

// NewAudioScanner returns a scanner for one generation stream. Scanners are
// not reusable across streams.
func (p *Processor) NewAudioScanner() *AudioScanner {
	return &AudioScanner{}
}

// Scan consumes the next slice of raw generated tokens and returns the codec
// token IDs found inside the audio region.
func (s *AudioScanner) Scan(ids []int64) []int64 {
	if s.done {
		return nil
	}

	var codes []int64
	for _, id := range ids {
		switch {
		case id == idAudioStart:
			s.inRegion = true
		case id == idAudioEnd:
			if s.inRegion {
				s.inRegion = false
				s.done = true
				return codes
			}
		case s.inRegion && id >= codeOffset && id < codeOffset+CodebookSize:
			codes = append(codes, id-codeOffset)
		}
	}

	return codes
}

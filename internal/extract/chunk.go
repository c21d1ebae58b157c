package extract

// ChunkerConfig tunes the three chunk granularities of spec §3/§6b.
type ChunkerConfig struct {
	FileByteCap      int // file-chunk content is truncated past this many bytes; 0 disables truncation
	MinSymbolChunk   int // symbols shorter than this (bytes) are folded into block-chunks instead
	BlockSize        int // block-chunk window size in characters, default 2000 (indexer.Config.CodeChunkSize upstream)
	BlockOverlap     int // block-chunk window overlap in characters, default 100
}

// DefaultChunkerConfig matches the teacher's indexer.Config code-chunk defaults.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		FileByteCap:    1 << 20, // 1MiB
		MinSymbolChunk: 40,
		BlockSize:      2000,
		BlockOverlap:   100,
	}
}

// chunker is the default Chunker: one file-chunk, one symbol-chunk per
// sizeable extracted symbol, and block-chunks tiling whatever source the
// symbols didn't cover — generalized from the teacher's header/paragraph
// tiling in internal/indexer/chunker.go, adapted to line ranges instead of
// markdown sections.
type chunker struct {
	cfg ChunkerConfig
}

// NewChunker returns the default Chunker.
func NewChunker(cfg ChunkerConfig) Chunker {
	return &chunker{cfg: cfg}
}

func (c *chunker) Chunk(filePath string, source []byte, symbols []RawSymbol) []RawChunk {
	content := string(source)
	if len(content) == 0 {
		return nil
	}

	var chunks []RawChunk
	chunks = append(chunks, c.fileChunk(filePath, content))

	lineCount := countLines(content)
	covered := make([]bool, lineCount+2)

	for _, sym := range symbols {
		symContent := sym.Content
		if len(symContent) < c.cfg.MinSymbolChunk {
			continue
		}
		chunks = append(chunks, RawChunk{
			ChunkType: "symbol", StartLine: sym.StartLine, EndLine: sym.EndLine,
			Content: symContent, SymbolName: sym.QualifiedName,
		})
		for l := sym.StartLine; l <= sym.EndLine && l < len(covered); l++ {
			covered[l] = true
		}
	}

	chunks = append(chunks, c.blockChunks(content, covered)...)
	return chunks
}

func (c *chunker) fileChunk(filePath, content string) RawChunk {
	text := content
	if c.cfg.FileByteCap > 0 && len(text) > c.cfg.FileByteCap {
		text = text[:c.cfg.FileByteCap]
	}
	return RawChunk{
		ChunkType: "file", StartLine: 1, EndLine: countLines(content),
		Content: text,
	}
}

// blockChunks tiles every contiguous run of un-symbolized lines into
// fixed-size, overlapping character windows.
func (c *chunker) blockChunks(content string, covered []bool) []RawChunk {
	lines := splitLinesKeepEmpty(content)
	var chunks []RawChunk

	runStart := -1
	flush := func(end int) {
		if runStart == -1 {
			return
		}
		runText := joinLineRange(lines, runStart, end)
		chunks = append(chunks, c.windowRun(runText, runStart)...)
		runStart = -1
	}

	for i := 1; i <= len(lines); i++ {
		isCovered := i < len(covered) && covered[i]
		if isCovered {
			flush(i - 1)
			continue
		}
		if runStart == -1 {
			runStart = i
		}
	}
	flush(len(lines))

	return chunks
}

// windowRun splits one uncovered line-range into BlockSize/BlockOverlap
// character windows, mapping each window back to an approximate line range.
func (c *chunker) windowRun(text string, startLine int) []RawChunk {
	if text == "" {
		return nil
	}
	size := c.cfg.BlockSize
	if size <= 0 {
		size = 2000
	}
	overlap := c.cfg.BlockOverlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	var chunks []RawChunk
	stride := size - overlap
	for pos := 0; pos < len(text); pos += stride {
		end := pos + size
		if end > len(text) {
			end = len(text)
		}
		window := text[pos:end]
		lineOffset := countLines(text[:pos])
		lineSpan := countLines(window)
		chunks = append(chunks, RawChunk{
			ChunkType: "block",
			StartLine: startLine + lineOffset,
			EndLine:   startLine + lineOffset + lineSpan,
			Content:   window,
		})
		if end == len(text) {
			break
		}
	}
	return chunks
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

func splitLinesKeepEmpty(content string) []string {
	var lines []string
	start := 0
	for i, r := range content {
		if r == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	lines = append(lines, content[start:])
	return lines
}

func joinLineRange(lines []string, start, end int) string {
	if start < 1 || end < start || start > len(lines) {
		return ""
	}
	if end > len(lines) {
		end = len(lines)
	}
	out := ""
	for i := start - 1; i < end; i++ {
		if i > start-1 {
			out += "\n"
		}
		out += lines[i]
	}
	return out
}

package chunker

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dstone/memdex/internal/config"
	"github.com/dstone/memdex/pkg/types"
)

// subHeadingRe matches any markdown heading and captures its marker run.
var subHeadingRe = regexp.MustCompile(`^(#+)\s+(.*)$`)

// Chunker splits markdown documents into retrieval chunks. The strategy is
// picked per document from its size category: small documents stay whole,
// medium documents split at top-level sections, large documents additionally
// get a leading summary chunk and token-budgeted sub-section splitting.
type Chunker struct {
	cfg       config.ChunkingConfig
	sectionRe *regexp.Regexp
}

// New creates a Chunker from the chunking configuration.
func New(cfg config.ChunkingConfig) (*Chunker, error) {
	re, err := regexp.Compile(cfg.SectionHeading)
	if err != nil {
		return nil, fmt.Errorf("compiling section heading pattern: %w", err)
	}
	return &Chunker{cfg: cfg, sectionRe: re}, nil
}

// Categorize returns the size category for a document with the given number
// of lines.
func (c *Chunker) Categorize(lineCount int) types.SizeCategory {
	switch {
	case lineCount <= c.cfg.SmallFileLines:
		return types.SizeSmall
	case lineCount <= c.cfg.MediumFileLines:
		return types.SizeMedium
	default:
		return types.SizeLarge
	}
}

// ChunkDocument splits a document into chunks. docPath must be the path
// relative to the indexed root; it scopes every chunk ID. An empty or
// whitespace-only document yields no chunks.
func (c *Chunker) ChunkDocument(docPath string, content []byte) ([]*types.Chunk, error) {
	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	lines := strings.Split(text, "\n")
	// A trailing newline produces one empty trailing element; it is not a
	// document line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	category := c.Categorize(len(lines))
	title := documentTitle(docPath, lines)

	var chunks []*types.Chunk
	switch category {
	case types.SizeSmall:
		chunks = []*types.Chunk{c.wholeDocumentChunk(docPath, title, lines, category)}
	case types.SizeMedium:
		chunks = c.chunkBySection(docPath, title, lines, category, false)
	default:
		chunks = c.chunkBySection(docPath, title, lines, category, true)
	}

	// Duplicate section titles would reproduce the same ID; bump the
	// ordinal until each ID is unique within the document.
	seen := make(map[string]bool, len(chunks))
	for _, ch := range chunks {
		for seen[ch.ID] {
			ch.Ordinal++
			ch.ID = types.ChunkID(docPath, ch.SectionPath, ch.Ordinal)
		}
		seen[ch.ID] = true
	}

	for _, ch := range chunks {
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("chunking %s: %w", docPath, err)
		}
	}
	return chunks, nil
}

// documentTitle uses the first level-1 heading, falling back to the file name
// without its extension.
func documentTitle(docPath string, lines []string) string {
	for _, line := range lines {
		if m := subHeadingRe.FindStringSubmatch(line); m != nil && len(m[1]) == 1 {
			return strings.TrimSpace(m[2])
		}
	}
	base := filepath.Base(docPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (c *Chunker) wholeDocumentChunk(docPath, title string, lines []string, category types.SizeCategory) *types.Chunk {
	content := strings.Join(lines, "\n")
	ch := &types.Chunk{
		DocumentPath: docPath,
		SectionPath:  []string{title},
		Content:      content,
		TokenCount:   types.EstimateTokens(content),
		StartLine:    1,
		EndLine:      len(lines),
		Category:     category,
	}
	ch.ID = types.ChunkID(docPath, ch.SectionPath, 0)
	return ch
}

// section is a top-level slice of the document: the heading line plus the
// body up to the next top-level heading.
type section struct {
	title     string
	startLine int // 1-based, the heading line (0 for the preamble)
	lines     []string
}

func (c *Chunker) chunkBySection(docPath, title string, lines []string, category types.SizeCategory, large bool) []*types.Chunk {
	preamble, sections := c.splitSections(lines)

	// No top-level sections: fall back to a single whole-document chunk.
	if len(sections) == 0 {
		return []*types.Chunk{c.wholeDocumentChunk(docPath, title, lines, category)}
	}

	var chunks []*types.Chunk
	if body := strings.TrimSpace(strings.Join(preamble, "\n")); body != "" {
		if large {
			chunks = append(chunks, c.summaryChunks(docPath, title, preamble, category)...)
		} else {
			ch := &types.Chunk{
				DocumentPath: docPath,
				SectionPath:  []string{title},
				Content:      strings.Join(preamble, "\n"),
				StartLine:    1,
				EndLine:      len(preamble),
				Category:     category,
			}
			ch.TokenCount = types.EstimateTokens(ch.Content)
			ch.ID = types.ChunkID(docPath, ch.SectionPath, 0)
			chunks = append(chunks, ch)
		}
	}

	for _, sec := range sections {
		path := []string{title, sec.title}
		if large {
			chunks = append(chunks, c.splitSection(docPath, path, sec, category)...)
		} else {
			content := strings.Join(sec.lines, "\n")
			ch := &types.Chunk{
				DocumentPath: docPath,
				SectionPath:  path,
				Content:      content,
				TokenCount:   types.EstimateTokens(content),
				StartLine:    sec.startLine,
				EndLine:      sec.startLine + len(sec.lines) - 1,
				Category:     category,
			}
			ch.ID = types.ChunkID(docPath, path, 0)
			chunks = append(chunks, ch)
		}
	}
	return chunks
}

// splitSections separates the preamble (everything before the first top-level
// heading) from the top-level sections.
func (c *Chunker) splitSections(lines []string) ([]string, []section) {
	var preamble []string
	var sections []section

	cur := -1
	for i, line := range lines {
		if c.sectionRe.MatchString(line) {
			sections = append(sections, section{
				title:     headingText(line),
				startLine: i + 1,
			})
			cur = len(sections) - 1
		}
		if cur < 0 {
			preamble = append(preamble, line)
		} else {
			sections[cur].lines = append(sections[cur].lines, line)
		}
	}
	return preamble, sections
}

// summaryChunks emits the executive summary chunk for a large document and,
// when the preamble runs past the summary cap, regular chunks covering the
// remainder.
func (c *Chunker) summaryChunks(docPath, title string, preamble []string, category types.SizeCategory) []*types.Chunk {
	cut := len(preamble)
	if c.cfg.SummaryMaxLines > 0 && cut > c.cfg.SummaryMaxLines {
		cut = c.cfg.SummaryMaxLines
	}

	content := strings.Join(preamble[:cut], "\n")
	summary := &types.Chunk{
		DocumentPath: docPath,
		SectionPath:  []string{title},
		Content:      content,
		TokenCount:   types.EstimateTokens(content),
		StartLine:    1,
		EndLine:      cut,
		Category:     category,
		Summary:      true,
	}
	summary.ID = types.ChunkID(docPath, summary.SectionPath, 0)
	chunks := []*types.Chunk{summary}

	if cut < len(preamble) {
		rest := section{title: title, startLine: cut + 1, lines: preamble[cut:]}
		// Ordinals start at 1 so the remainder never collides with the
		// summary chunk's ID.
		chunks = append(chunks, c.splitSectionFrom(docPath, []string{title}, rest, category, 1)...)
	}
	return chunks
}

// paragraph is a blank-line delimited run of lines with the heading trail in
// effect at its start.
type paragraph struct {
	lines     []string
	startLine int
	tokens    int
	trail     []string
}

// splitSection turns one section into chunks, splitting at paragraph
// boundaries when the token budget is exceeded. Consecutive sub-chunks share
// an overlap of trailing tokens so that context is not lost at the cut.
func (c *Chunker) splitSection(docPath string, path []string, sec section, category types.SizeCategory) []*types.Chunk {
	return c.splitSectionFrom(docPath, path, sec, category, 0)
}

func (c *Chunker) splitSectionFrom(docPath string, path []string, sec section, category types.SizeCategory, startOrdinal int) []*types.Chunk {
	paras := c.paragraphs(sec)
	if len(paras) == 0 {
		return nil
	}

	// Greedy packing: group paragraphs until the budget would overflow. A
	// single paragraph over budget still becomes its own chunk; paragraphs
	// never split internally.
	var groups [][]paragraph
	var cur []paragraph
	tokens := 0
	for _, p := range paras {
		if len(cur) > 0 && tokens+p.tokens > c.cfg.MaxChunkTokens {
			groups = append(groups, cur)
			cur = nil
			tokens = 0
		}
		cur = append(cur, p)
		tokens += p.tokens
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	chunks := make([]*types.Chunk, 0, len(groups))
	var prevContent string
	for i, group := range groups {
		var sb strings.Builder
		if i > 0 && c.cfg.OverlapTokens > 0 && prevContent != "" {
			sb.WriteString(tailTokens(prevContent, c.cfg.OverlapTokens))
			sb.WriteString("\n\n")
		}
		body := joinParagraphs(group)
		sb.WriteString(body)

		subPath := path
		if trail := group[0].trail; len(trail) > 0 {
			subPath = append(append([]string{}, path...), trail...)
		}

		ordinal := 0
		switch {
		case startOrdinal > 0:
			ordinal = startOrdinal + i
		case len(groups) > 1:
			ordinal = i + 1
		}

		// Each chunk's range runs to the line before the next chunk starts,
		// so blank separator and trailing lines stay covered.
		endLine := sec.startLine + len(sec.lines) - 1
		if i < len(groups)-1 {
			endLine = groups[i+1][0].startLine - 1
		}

		ch := &types.Chunk{
			DocumentPath: docPath,
			SectionPath:  subPath,
			Ordinal:      ordinal,
			Content:      sb.String(),
			StartLine:    group[0].startLine,
			EndLine:      endLine,
			Category:     category,
		}
		ch.TokenCount = types.EstimateTokens(ch.Content)
		ch.ID = types.ChunkID(docPath, subPath, ordinal)
		chunks = append(chunks, ch)
		prevContent = body
	}
	return chunks
}

// paragraphs splits a section into blank-line delimited paragraphs, tracking
// the sub-heading trail. A heading deeper than the section marker opens a
// trail entry; a heading at the same or shallower depth than an open entry
// replaces it, so malformed level jumps degrade to siblings instead of
// breaking the walk.
func (c *Chunker) paragraphs(sec section) []paragraph {
	type trailEntry struct {
		level int
		title string
	}
	var trail []trailEntry

	currentTrail := func() []string {
		out := make([]string, len(trail))
		for i, e := range trail {
			out[i] = e.title
		}
		return out
	}

	var paras []paragraph
	var cur *paragraph
	flush := func() {
		if cur != nil {
			paras = append(paras, *cur)
			cur = nil
		}
	}

	for i, line := range sec.lines {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if m := subHeadingRe.FindStringSubmatch(line); m != nil && len(m[1]) >= 3 {
			flush()
			level := len(m[1])
			for len(trail) > 0 && trail[len(trail)-1].level >= level {
				trail = trail[:len(trail)-1]
			}
			trail = append(trail, trailEntry{level: level, title: strings.TrimSpace(m[2])})
		}
		if cur == nil {
			cur = &paragraph{startLine: sec.startLine + i, trail: currentTrail()}
		}
		cur.lines = append(cur.lines, line)
		cur.tokens += types.EstimateTokens(line)
	}
	flush()
	return paras
}

func joinParagraphs(paras []paragraph) string {
	parts := make([]string, len(paras))
	for i, p := range paras {
		parts[i] = strings.Join(p.lines, "\n")
	}
	return strings.Join(parts, "\n\n")
}

// tailTokens returns the last n whitespace tokens of text joined by spaces.
func tailTokens(text string, n int) string {
	fields := strings.Fields(text)
	if len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return strings.Join(fields, " ")
}

// headingText strips the heading marker from a section heading line.
func headingText(line string) string {
	if m := subHeadingRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[2])
	}
	return strings.TrimSpace(strings.TrimLeft(line, "#"))
}

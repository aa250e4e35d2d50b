package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/Xmanuel01/Viralclips/models"
)

// DefaultSubtitleStyle matches the product's stock burned-in look.
func DefaultSubtitleStyle() models.SubtitleStyle {
	return models.SubtitleStyle{
		Font:       "Arial",
		Size:       48,
		Color:      "#FFFFFF",
		Background: "#000000",
		Position:   "bottom",
		Animation:  models.AnimationNone,
	}
}

// BuildASS renders clip-local transcript segments into an ASS subtitle
// document. Animations are expressed as ASS override tags so the encoder
// burns them in without a compositing pass.
func BuildASS(segments []models.Segment, style models.SubtitleStyle, playResX, playResY int) string {
	var b strings.Builder

	alignment := 2 // bottom-center
	marginV := 40
	switch style.Position {
	case "center":
		alignment = 5
		marginV = 0
	case "top":
		alignment = 8
	}

	fmt.Fprintf(&b, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 0\n\n", playResX, playResY)
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,%s,%s,-1,2,0,%d,20,20,%d\n\n",
		style.Font, style.Size,
		assColor(style.Color, 0),
		assColor("#000000", 0),
		assColor(style.Background, 128),
		alignment, marginV)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Text\n")

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.End <= seg.Start {
			continue
		}
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,%s\n",
			assTime(seg.Start), assTime(seg.End),
			animate(seg, style.Animation, playResX, playResY, alignment))
	}

	return b.String()
}

// WriteASS writes the subtitle document to path.
func WriteASS(path string, segments []models.Segment, style models.SubtitleStyle, playResX, playResY int) error {
	doc := BuildASS(segments, style, playResX, playResY)
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}
	return nil
}

// animate prefixes the dialogue text with the override tags for the chosen
// animation kind.
func animate(seg models.Segment, kind models.SubtitleAnimation, resX, resY, alignment int) string {
	text := escapeASS(strings.TrimSpace(seg.Text))

	switch kind {
	case models.AnimationFade:
		return `{\fad(150,150)}` + text
	case models.AnimationBounce:
		return `{\t(0,120,\fscx120\fscy120)\t(120,240,\fscx100\fscy100)}` + text
	case models.AnimationPulse:
		return `{\t(0,300,\fscx110\fscy110)\t(300,600,\fscx100\fscy100)}` + text
	case models.AnimationSlide:
		x := resX / 2
		y := resY - 80
		if alignment == 5 {
			y = resY / 2
		} else if alignment == 8 {
			y = 80
		}
		return fmt.Sprintf(`{\move(%d,%d,%d,%d,0,200)}`, -resX/4, y, x, y) + text
	case models.AnimationTypewriter:
		return typewriter(seg)
	default:
		return text
	}
}

// typewriter emits karaoke timing per word. Word timestamps are used when
// present; otherwise the segment duration is split evenly.
func typewriter(seg models.Segment) string {
	var b strings.Builder

	if len(seg.Words) > 0 {
		cursor := seg.Start
		for _, w := range seg.Words {
			durCS := int((w.End - cursor) * 100)
			if durCS < 1 {
				durCS = 1
			}
			fmt.Fprintf(&b, `{\k%d}%s `, durCS, escapeASS(w.Text))
			cursor = w.End
		}
		return strings.TrimSpace(b.String())
	}

	words := strings.Fields(seg.Text)
	if len(words) == 0 {
		return ""
	}
	durCS := int((seg.End - seg.Start) * 100 / float64(len(words)))
	if durCS < 1 {
		durCS = 1
	}
	for _, w := range words {
		fmt.Fprintf(&b, `{\k%d}%s `, durCS, escapeASS(w))
	}
	return strings.TrimSpace(b.String())
}

// assTime formats seconds as H:MM:SS.CC.
func assTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	h := int(sec) / 3600
	m := (int(sec) % 3600) / 60
	s := int(sec) % 60
	cs := int((sec - float64(int(sec))) * 100)
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// assColor converts "#RRGGBB" to ASS &HAABBGGRR& (note the BGR ordering).
func assColor(hex string, alpha uint8) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		hex = "FFFFFF"
	}
	var r, g, b uint8
	fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b)
	return fmt.Sprintf("&H%02X%02X%02X%02X", alpha, b, g, r)
}

func escapeASS(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "{", "(")
	text = strings.ReplaceAll(text, "}", ")")
	text = strings.ReplaceAll(text, "\n", `\N`)
	return text
}

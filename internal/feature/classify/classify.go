// Package classify maps the numeric analysis results onto categorical tags:
// sonic characteristics, mood, listening occasions, subgenres, an estimated
// production era and a cultural context. All rules are fixed thresholds over
// the upstream features; there is no learned model involved.
package classify

import (
	"strings"

	"github.com/FmBlueSystem/music-analyzer-pro-sub000/internal/types"
)

// Inputs collects the upstream results the tagging rules read from.
type Inputs struct {
	Spectral   *types.SpectralResult
	Tempo      *types.TempoResult
	Loudness   *types.LoudnessResult
	Quality    *types.QualityResult
	Perceptual *types.PerceptualResult
}

const (
	maxCharacteristics = 5
	minCharacteristics = 3
	maxOccasions       = 3
	maxSubgenres       = 3
	minSubgenres       = 2
)

// Tag derives all categorical descriptors. Cardinality is guaranteed:
// 3-5 characteristics, 2-3 occasions, 2-3 subgenres.
func Tag(in Inputs) *types.ClassificationResult {
	subgenres := subgenres(in)

	return &types.ClassificationResult{
		Characteristics: characteristics(in),
		Mood:            mood(in.Perceptual),
		Occasions:       occasions(in),
		Subgenres:       subgenres,
		Era:             era(in),
		CulturalContext: culturalContext(in, subgenres),
	}
}

// characteristics collects timbral, rhythmic and production descriptors,
// in that priority order.
func characteristics(in Inputs) []string {
	var tags []string

	switch {
	case in.Spectral.Centroid > 4000:
		tags = append(tags, "Bright")
	case in.Spectral.Centroid < 1000:
		tags = append(tags, "Dark")
	default:
		tags = append(tags, "Balanced")
	}

	switch {
	case in.Spectral.ZeroCrossingRate > 0.1:
		tags = append(tags, "Percussive")
	case in.Spectral.ZeroCrossingRate < 0.02:
		tags = append(tags, "Smooth")
	}

	switch {
	case in.Spectral.Rolloff > 8000:
		tags = append(tags, "Full-spectrum")
	case in.Spectral.Rolloff < 3000:
		tags = append(tags, "Muffled")
	}

	nyquist := in.Spectral.BinHz * float64(len(in.Spectral.AvgMagnitude)-1)
	if in.Spectral.BandRatio(5000, nyquist) > 0.3 && in.Spectral.ZeroCrossingRate > 0.08 {
		tags = append(tags, "Distorted")
	}

	switch {
	case in.Tempo.BPM > 140:
		tags = append(tags, "Driving rhythm")
	case in.Tempo.BPM < 80:
		tags = append(tags, "Laid-back rhythm")
	default:
		tags = append(tags, "Moderate rhythm")
	}

	switch {
	case in.Tempo.OnsetDensity > 5:
		tags = append(tags, "Complex rhythm")
	case in.Tempo.OnsetDensity < 1:
		tags = append(tags, "Simple rhythm")
	}

	if in.Perceptual.Liveness > 0.3 {
		tags = append(tags, "Reverb")
	}

	if in.Quality.Compressed {
		tags = append(tags, "Compressed")
	}

	if len(tags) < minCharacteristics {
		tags = append(tags, "Wide dynamics")
	}

	if len(tags) > maxCharacteristics {
		tags = tags[:maxCharacteristics]
	}

	return tags
}

/*
Mood Matrix

|           | valence high      | valence mid        | valence low                     |
|-----------|-------------------|--------------------|---------------------------------|
| energy hi | Energetic, Joyful | Energetic,Uplifting| Aggressive, Intense, Powerful   |
| energy mid| Happy, Upbeat     | Positive, Moderate | Serious, Focused                |
| energy lo | Peaceful, Content | Calm, Neutral      | Sad, Melancholic, Contemplative |
*/
func mood(p *types.PerceptualResult) string {
	e, v := p.Energy, p.Valence

	switch {
	case e > 0.7 && v > 0.7:
		return "Energetic, Joyful, Euphoric"
	case e > 0.7 && v > 0.4:
		return "Energetic, Uplifting"
	case e > 0.7:
		return "Aggressive, Intense, Powerful"
	case e > 0.4 && v > 0.7:
		return "Happy, Upbeat"
	case e > 0.4 && v > 0.4:
		return "Positive, Moderate"
	case e > 0.4:
		return "Serious, Focused"
	case v > 0.6:
		return "Peaceful, Content, Relaxed"
	case v > 0.3:
		return "Calm, Neutral"
	default:
		return "Sad, Melancholic, Contemplative"
	}
}

// occasions suggests listening situations from tempo and energy.
func occasions(in Inputs) []string {
	bpm := in.Tempo.BPM
	energy := in.Perceptual.Energy

	var tags []string

	switch {
	case bpm > 120 && energy > 0.7:
		tags = append(tags, "Party", "Workout")

		if bpm > 140 {
			tags = append(tags, "Dancing")
		} else {
			tags = append(tags, "Driving")
		}
	case bpm >= 90 && bpm <= 120 && energy >= 0.4 && energy <= 0.7:
		tags = append(tags, "Background", "Casual listening")

		if energy > 0.5 {
			tags = append(tags, "Driving")
		} else {
			tags = append(tags, "Coffee shop")
		}
	case bpm < 90 && energy < 0.4:
		tags = append(tags, "Study", "Relaxation", "Meditation")
	case energy > 0.6:
		tags = append(tags, "Gym", "Motivation")
	default:
		tags = append(tags, "General listening", "Background")
	}

	if len(tags) > maxOccasions {
		tags = tags[:maxOccasions]
	}

	return tags
}

// subgenres applies acousticness-led style rules, then pads with an
// energy-based fallback so at least two tags come out.
func subgenres(in Inputs) []string {
	bpm := in.Tempo.BPM
	p := in.Perceptual

	var tags []string

	switch {
	case p.Acousticness < 0.3 && p.Energy > 0.6:
		switch {
		case bpm >= 120 && bpm <= 135:
			if p.Danceability > 0.8 {
				tags = append(tags, "House")
			} else {
				tags = append(tags, "Electronic")
			}
		case bpm >= 160 && bpm <= 180:
			tags = append(tags, "Drum & Bass")
		case bpm >= 135 && bpm <= 155:
			tags = append(tags, "Trance")
		}
	case p.Acousticness > 0.3 && p.Acousticness < 0.7 && p.Energy > 0.5:
		switch {
		case p.Valence > 0.6:
			tags = append(tags, "Pop Rock")
		case p.Energy > 0.8:
			tags = append(tags, "Hard Rock")
		default:
			tags = append(tags, "Alternative Rock")
		}
	case p.Acousticness > 0.7:
		switch {
		case p.Energy < 0.4 && p.Valence > 0.5:
			tags = append(tags, "Folk")
		case p.Instrumentalness > 0.8:
			tags = append(tags, "Classical")
		default:
			tags = append(tags, "Acoustic")
		}
	case p.Speechiness > 0.6 && bpm >= 70 && bpm <= 140:
		if p.Energy > 0.7 {
			tags = append(tags, "Hip-Hop")
		} else {
			tags = append(tags, "Rap")
		}
	case p.Acousticness > 0.6 && p.Instrumentalness > 0.5 && bpm >= 60 && bpm <= 120:
		tags = append(tags, "Jazz")
	}

	fallback := "Pop"

	switch {
	case p.Energy > 0.7:
		fallback = "High Energy"
	case p.Energy < 0.3:
		fallback = "Ambient"
	}

	tags = appendUnique(tags, fallback)

	if len(tags) < minSubgenres {
		tags = appendUnique(tags, "Contemporary")
	}

	if len(tags) > maxSubgenres {
		tags = tags[:maxSubgenres]
	}

	return tags
}

// era estimates the production decade from mastering loudness and timbre.
func era(in Inputs) string {
	p := in.Perceptual
	lufs := in.Loudness.IntegratedLUFS

	vintage := in.Spectral.Rolloff < 10000 &&
		in.Spectral.Centroid < 2000 &&
		in.Spectral.ZeroCrossingRate < 0.05

	switch {
	case lufs > -8 && !vintage:
		if p.Acousticness < 0.3 && p.Energy > 0.7 {
			return "2010s"
		}

		return "2000s"
	case lufs > -15 && p.Acousticness > 0.4 && p.Acousticness < 0.8 && p.Energy > 0.6 && p.Valence < 0.6:
		return "1990s"
	case p.Acousticness < 0.5 && p.Liveness > 0.3 && in.Spectral.Centroid > 2000:
		return "1980s"
	case lufs < -18 && p.Acousticness > 0.5:
		return "1970s"
	case vintage && lufs < -20:
		return "1960s"
	default:
		return "2000s"
	}
}

// culturalContext picks a tradition from rhythm, harmony and the leading
// subgenre tag.
func culturalContext(in Inputs, subgenreTags []string) string {
	p := in.Perceptual
	bpm := in.Tempo.BPM

	leadGenre := ""
	if len(subgenreTags) > 0 {
		leadGenre = subgenreTags[0]
	}

	switch {
	case p.Danceability > 0.8 && bpm >= 90 && bpm <= 130:
		if p.Acousticness > 0.6 {
			return "Latin American traditional"
		}

		return "Latin fusion"
	case in.Tempo.TimeSignature != 4 && p.Danceability > 0.7:
		return "African polyrhythmic traditions"
	case p.Acousticness > 0.5 && p.Energy > 0.6 && strings.Contains(leadGenre, "Rock"):
		return "British rock tradition"
	case p.Acousticness > 0.7 && p.Valence < 0.5 && bpm < 100:
		return "American blues tradition"
	case p.Acousticness < 0.2 && p.Energy > 0.8:
		return "European electronic tradition"
	case p.Valence > 0.7 && p.Energy > 0.6 && p.Acousticness < 0.6:
		return "Asian pop influence"
	default:
		return "Western popular music"
	}
}

func appendUnique(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}

	return append(tags, tag)
}

package presets

import "fmt"

const titlePromptTemplate = `You are naming tracks for a dark, electronic focus music mix.

Genre: %s
Style: %s
Number of titles needed: %d

Aesthetic inspiration: Tron Legacy, Blade Runner, cyberpunk, dystopian futures,
neon-noir, late-night coding sessions, dark warehouses, digital grids.

Generate %d unique, evocative track titles. Each title should:
- Be 2-4 words long
- Feel dark, moody, and electronic
- Evoke digital/technological imagery (grids, circuits, signals, voids)
- Be poetic and memorable, not generic
- Avoid happy, warm, or bright imagery
- Sound like they belong on a Tron or Blade Runner soundtrack

Output ONLY the titles, one per line. No numbering, no explanations.`

// TitlePrompt renders the system prompt used for model-generated track titles.
func TitlePrompt(genreName, style string, count int) string {
	return fmt.Sprintf(titlePromptTemplate, genreName, style, count, count)
}

// ThumbnailPrompt is the system prompt used to obtain a unique image prompt
// for cover generation.
const ThumbnailPrompt = `You are a creative director for a coding/focus music YouTube channel.
Generate a unique, detailed image prompt for a YouTube thumbnail.

Theme: Dark, moody, atmospheric scenes with soft diffuse lighting.

Vary between these scene types:
- Silhouette of person at monitors during blue hour, soft city lights in background
- Minimalist workspace at golden hour, warm light diffusing through windows
- Back view of developer in glass-walled space at dusk, muted city skyline
- Cozy cabin workspace at dawn, soft morning mist outside
- Rooftop setup during early evening, subtle warm and cool tones mixing
- Dark office at night with soft ambient screen glow, city out of focus below

Time of day (vary between):
- Early morning / dawn with soft diffuse light
- Golden hour / early evening with warm muted tones
- Nighttime with subtle ambient lighting

Style requirements:
- MUST be landscape/widescreen (16:9 aspect ratio)
- Dark and moody overall tone
- Soft, diffuse lighting - no harsh light sources
- Cinematic contrast with deep shadows
- Muted, desaturated color palette - NO oversaturated colors
- Cool blues and teals with occasional subtle warm accents
- Film grain, photorealistic, ultra-wide angle
- Can include silhouette/back of person (adds scale and relatability)
- No faces visible, no text, no watermarks

Output ONLY the image prompt. Be specific and vivid. Emphasize soft lighting and muted colors.`

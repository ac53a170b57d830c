package mcpserver

// ElementFormatContract describes the canonical element wire format that
// LLM consumers should follow when creating or updating board elements.
const ElementFormatContract = `# Dagaz Element Format Contract

Every element on a Dagaz board is a JSON object with this structure.

## Structure

` + "```" + `json
{
  "kind": "rectangle",            // REQUIRED – see kinds below
  "x": 100, "y": 50,              // top-left of the bounding box, canvas units
  "w": 200, "h": 120,             // width and height (may be negative mid-drag,
                                  //   stored elements are normalized to >= 0)
  "rotation": 0,                  // degrees, counter-clockwise around the center
  "stroke": "#1e1e1e",            // stroke color, #rgb or #rrggbb
  "fill": "",                     // fill color, empty for none
  "stroke_width": 2,
  "dash": [],                     // dash pattern in canvas units, empty = solid
  "opacity": 1                    // REQUIRED – 0..1
}
` + "```" + `

## Kinds

| kind        | geometry                                            |
|-------------|-----------------------------------------------------|
| ` + "`path`" + `      | freehand polyline; set ` + "`points`" + ` to an array of {x,y} |
| ` + "`rectangle`" + ` | bounding box                                        |
| ` + "`diamond`" + `   | rhombus inscribed in the bounding box               |
| ` + "`ellipse`" + `   | ellipse inscribed in the bounding box               |
| ` + "`line`" + `      | segment from (x,y) to (x+w, y+h)                    |
| ` + "`arrow`" + `     | like line, with an arrow head at the far end        |
| ` + "`text`" + `      | set ` + "`text`" + `, ` + "`font_family`" + `, ` + "`font_size`" + `, ` + "`text_align`" + `  |
| ` + "`image`" + `     | set ` + "`url`" + ` to an asset URL from upload_asset       |

## Rules

1. **` + "`kind`" + ` and ` + "`opacity`" + ` are required.** Everything else has a usable default.
2. **Server-assigned fields** (` + "`id`" + `, ` + "`created_at`" + `, ` + "`updated_at`" + `) are set on
   insert; do not send them. An omitted ` + "`layer`" + ` is assigned on top of the
   board; an explicit one, zero included, is kept as sent.
3. **Updates are partial.** Send only the attributes that change; omitted
   fields keep their stored values.
4. **Deletion is soft.** Patch ` + "`{\"deleted\": true}`" + ` instead of removing the
   element; patch it back to false to restore.
5. **Image URLs** must come from the ` + "`upload_asset`" + ` tool (` + "`/assets/<name>`" + `).
   Do not reference external URLs from image elements.
6. **Colors** are ` + "`#rgb`" + ` or ` + "`#rrggbb`" + ` hex strings.

## Example

Draw a labelled box with an arrow pointing at it:

` + "```" + `json
{"kind": "rectangle", "x": 0, "y": 0, "w": 160, "h": 80,
 "stroke": "#1e1e1e", "stroke_width": 2, "opacity": 1}
{"kind": "text", "x": 20, "y": 30, "w": 120, "h": 20,
 "text": "API gateway", "font_size": 16, "opacity": 1}
{"kind": "arrow", "x": -120, "y": 40, "w": 110, "h": 0,
 "stroke": "#1e1e1e", "stroke_width": 2, "opacity": 1}
` + "```" + `
`

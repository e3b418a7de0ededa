package shelf

import (
	"fmt"
	"strings"
)

const fullPrompt = `Identifica los vinilos en esta estantería leyendo los lomos de IZQUIERDA a DERECHA.

REGLAS:
- 1 lomo físico = 1 entrada. NO inventes discos que no ves.
- NO completes discografías. Lee CADA lomo por separado.
- Si no puedes leer un lomo: "Unknown Artist"/"Unknown Album", confidence 0.1.
- Confianza: 0.95+ texto claro, 0.7-0.94 parcial, 0.3-0.69 visual, 0.1-0.29 ilegible.

Responde SOLO JSON válido (sin markdown):
{"albums":[{"position":1,"artist":"Nombre","title":"Título","year":2020,"confidence":0.9,"spine_x_start":0.0,"spine_x_end":0.03}]}`

const reanalyzeTemplate = `Identifica estos vinilos específicos en la estantería. Enfócate en estas zonas:

%s

Lee el texto de cada lomo con detalle. Si no puedes leerlo, pon "Unknown Artist"/"Unknown Album" con confianza baja.

Responde SOLO JSON:
{"albums":[{"position":5,"artist":"Artista","title":"Álbum","year":2020,"confidence":0.7}]}`

// zoneLine describes where position pos sits, as a percentage range of the
// image width. Positions without coordinates are listed bare.
func zoneLine(pos int, coords map[int]SpineCoord) string {
	c, ok := coords[pos]
	if !ok {
		return fmt.Sprintf("- #%d", pos)
	}
	return fmt.Sprintf("- #%d: zona %.0f%%-%.0f%% horizontal", pos, c.XStart*100, c.XEnd*100)
}

func reanalyzePrompt(positions []int, coords map[int]SpineCoord) string {
	lines := make([]string, len(positions))
	for i, p := range positions {
		lines[i] = zoneLine(p, coords)
	}
	return fmt.Sprintf(reanalyzeTemplate, strings.Join(lines, "\n"))
}

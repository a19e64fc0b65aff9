package config

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/jeffrom/tagnotes/model"
)

// Audience configures how the changelog for one reader is prompted for and
// where it is written. Prompt and FileName are text/templates receiving
// PromptData.
type Audience struct {
	Name     string `json:"name"`
	Prompt   string `json:"prompt,omitempty"`
	FileName string `json:"file_name,omitempty"`
}

type PromptData struct {
	Release string
	Context string
}

type CompiledAudience struct {
	Name     model.Audience
	prompt   *template.Template
	fileName *template.Template
}

func (a Audience) Compile() (*CompiledAudience, error) {
	if !isKnownAudience(a.Name) {
		return nil, fmt.Errorf("config: unknown audience %q", a.Name)
	}
	prompt, err := template.New(a.Name + "_prompt").Option("missingkey=error").Parse(a.Prompt)
	if err != nil {
		return nil, fmt.Errorf("config: audience %s prompt: %w", a.Name, err)
	}
	fileName, err := template.New(a.Name + "_file").Option("missingkey=error").Parse(a.FileName)
	if err != nil {
		return nil, fmt.Errorf("config: audience %s file name: %w", a.Name, err)
	}
	return &CompiledAudience{Name: model.Audience(a.Name), prompt: prompt, fileName: fileName}, nil
}

func (a *CompiledAudience) RenderPrompt(d PromptData) (string, error) {
	b := &bytes.Buffer{}
	if err := a.prompt.Execute(b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (a *CompiledAudience) RenderFileName(release string) (string, error) {
	b := &strings.Builder{}
	if err := a.fileName.Execute(b, PromptData{Release: release}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Audience returns the configured audience definition, filling unset
// fields from the builtin definition.
func (c Config) Audience(name model.Audience) (Audience, error) {
	aud := getBuiltinAudience(string(name))
	if aud == nil {
		return Audience{}, fmt.Errorf("config: unknown audience %q", name)
	}
	for _, custom := range c.Audiences {
		if custom.Name != string(name) {
			continue
		}
		if custom.Prompt != "" {
			aud.Prompt = custom.Prompt
		}
		if custom.FileName != "" {
			aud.FileName = custom.FileName
		}
	}
	return *aud, nil
}

// GetAudience returns the compiled configured audience.
func (c Config) GetAudience(name model.Audience) (*CompiledAudience, error) {
	aud, err := c.Audience(name)
	if err != nil {
		return nil, err
	}
	return aud.Compile()
}

func (a *Audience) TextSummary(w io.Writer) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(fmt.Sprintf("Name: %s\n", a.Name))
	if a.FileName != "" {
		bw.WriteString(fmt.Sprintf("File name: %s\n", a.FileName))
	}
	if a.Prompt != "" {
		bw.WriteString("Prompt:\n")
		for _, line := range strings.Split(strings.TrimRight(a.Prompt, "\n"), "\n") {
			bw.WriteString("  ")
			bw.WriteString(line)
			bw.WriteString("\n")
		}
	}

	return bw.Flush()
}

func isKnownAudience(name string) bool {
	for _, aud := range model.Audiences {
		if string(aud) == name {
			return true
		}
	}
	return false
}

func BuiltinAudiences() []Audience {
	res := make([]Audience, len(builtinAudiences))
	copy(res, builtinAudiences)
	return res
}

func getBuiltinAudience(name string) *Audience {
	for _, aud := range builtinAudiences {
		if name == aud.Name {
			return &aud
		}
	}
	return nil
}

var builtinAudiences = []Audience{
	{
		Name:     string(model.Commercial),
		FileName: "Changelog_comercial_{{ .Release }}.md",
		Prompt: `Eres un experto en comunicación comercial y product management.

Analiza los siguientes commits de un release de software y genera un changelog COMERCIAL para el equipo de ventas y clientes.

{{ .Context }}

IMPORTANTE: El formato debe ser compatible con WhatsApp/Telegram usando emojis y formato de texto enriquecido.

Estructura requerida:

**📋 CHANGELOG COMERCIAL - Release {{ .Release }}**

*🎯 RESUMEN EJECUTIVO*
[Descripción breve y clara del release en 2-3 líneas]

*✨ NUEVAS CARACTERÍSTICAS*
🟢 [Característica]: Descripción clara del valor para el cliente

*🔧 MEJORAS*
🔵 [Mejora]: Cómo beneficia al usuario

*🐛 CORRECCIONES*
🟡 [Fix]: Problema resuelto en lenguaje simple

*⚠️ CAMBIOS IMPORTANTES*
🔴 [Cambio]: Qué debe saber el cliente

*💡 VALOR APORTADO*
[Explicación del impacto positivo general del release]

*📌 NOTAS ADICIONALES*
[Información relevante para comunicar al cliente]

Reglas:
- NO uses términos técnicos innecesarios
- Enfócate en el VALOR y BENEFICIOS para el cliente
- Usa lenguaje claro y profesional
- Sé conciso pero informativo
`,
	},
	{
		Name:     string(model.Technical),
		FileName: "Changelog_tech_{{ .Release }}.md",
		Prompt: `Eres un experto en desarrollo de software y documentación técnica.

Analiza los siguientes commits de un release de software y genera un changelog TÉCNICO para el equipo de desarrollo.

{{ .Context }}

IMPORTANTE: El formato debe ser compatible con WhatsApp/Telegram usando emojis y formato de texto enriquecido.

Estructura requerida:

*🔧 CHANGELOG TÉCNICO - Release {{ .Release }}*

*📊 RESUMEN TÉCNICO*
[Descripción técnica del release, arquitectura afectada, componentes modificados]

*✨ NUEVAS FUNCIONALIDADES*
🟢 [Feature]: Implementación técnica, APIs, componentes

*🔧 MEJORAS TÉCNICAS*
🔵 [Mejora]: Optimizaciones, refactoring, performance

*🐛 BUGS CORREGIDOS*
🟡 [Bug]: Descripción técnica del problema y solución

*⚠️ BREAKING CHANGES*
🔴 [Breaking]: Cambios que rompen compatibilidad

*🏗️ CAMBIOS DE ARQUITECTURA*
🟣 [Cambio]: Modificaciones estructurales importantes

*📦 DEPENDENCIAS*
[Nuevas dependencias, actualizaciones, deprecaciones]

*🔒 SEGURIDAD*
[Parches de seguridad, vulnerabilidades corregidas]

*🧪 TESTING*
[Nuevos tests, cobertura, mejoras en testing]

*📝 NOTAS PARA DESARROLLADORES*
[Información importante para el equipo técnico, migraciones, configuraciones]

Reglas:
- USA términos técnicos precisos
- Menciona archivos, funciones, clases modificadas cuando sea relevante
- Sé detallado y preciso
`,
	},
}

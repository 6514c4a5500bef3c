package synth

import (
	"strings"
	"text/template"
)

// babeldTmpl renders the optional routing-daemon fragment: interface
// plus two redistribute lines, deliberately minimal.
var babeldTmpl = template.Must(template.New("babeld").Parse(
	"interface {{.Interface}}\nredistribute local\nredistribute ip {{.CIDR}}\n",
))

// RenderBabeld renders the Babel fragment for an interface, if enabled.
func RenderBabeld(interfaceName, cidr string) (string, error) {
	var b strings.Builder
	err := babeldTmpl.Execute(&b, struct {
		Interface string
		CIDR      string
	}{Interface: interfaceName, CIDR: cidr})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

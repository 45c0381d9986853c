package manifest

import (
	"path"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"repoassess/internal/types"
)

const ecosystemTerraform = "terraform"

type terraformParser struct{}

func (terraformParser) ProjectType() types.ProjectType { return types.ProjectTypeTerraform }
func (terraformParser) Ecosystem() string              { return ecosystemTerraform }
func (terraformParser) Match(name string) bool {
	return strings.EqualFold(path.Ext(name), ".tf")
}

var (
	tfRootSchema = &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "terraform"},
			{Type: "module", LabelNames: []string{"name"}},
			{Type: "resource", LabelNames: []string{"type", "name"}},
		},
	}
	tfSettingsSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "required_version"}},
		Blocks:     []hcl.BlockHeaderSchema{{Type: "required_providers"}},
	}
	tfModuleSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "source"}, {Name: "version"}},
	}
)

func (p terraformParser) Parse(relPath string, data []byte) (Result, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, relPath)
	if diags.HasErrors() {
		return Result{}, parseError(relPath, diags)
	}
	content, _, diags := file.Body.PartialContent(tfRootSchema)
	if diags.HasErrors() {
		return Result{}, parseError(relPath, diags)
	}

	var res Result
	for _, block := range content.Blocks {
		switch block.Type {
		case "terraform":
			p.parseSettings(relPath, block, &res)
		case "module":
			attrs, _, _ := block.Body.PartialContent(tfModuleSchema)
			source := stringAttr(attrs.Attributes["source"])
			if source == "" {
				continue
			}
			// Local modules are part of this repository, not dependencies.
			if strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") {
				continue
			}
			version := stringAttr(attrs.Attributes["version"])
			res.Dependencies = append(res.Dependencies, dep(ecosystemTerraform, source, version, "", "module", relPath))
		case "resource":
			res.IsApplication = boolPtr(true)
		}
	}
	return res, nil
}

func (terraformParser) parseSettings(relPath string, block *hcl.Block, res *Result) {
	settings, _, _ := block.Body.PartialContent(tfSettingsSchema)
	if v := stringAttr(settings.Attributes["required_version"]); v != "" && res.Framework == nil {
		res.Framework = &v
	}
	for _, rp := range settings.Blocks {
		attrs, diags := rp.Body.JustAttributes()
		if diags.HasErrors() {
			continue
		}
		for _, name := range sortedKeys(map[string]*hcl.Attribute(attrs)) {
			val, diags := attrs[name].Expr.Value(nil)
			if diags.HasErrors() || val.IsNull() || !val.IsKnown() {
				continue
			}
			source, version := name, ""
			switch {
			case val.Type() == cty.String:
				version = val.AsString()
			case val.Type().IsObjectType():
				if val.Type().HasAttribute("source") {
					if s := ctyString(val.GetAttr("source")); s != "" {
						source = s
					}
				}
				if val.Type().HasAttribute("version") {
					version = ctyString(val.GetAttr("version"))
				}
			}
			group, provider := "", source
			if i := strings.LastIndexByte(source, '/'); i >= 0 {
				group, provider = source[:i], source[i+1:]
			}
			res.Dependencies = append(res.Dependencies, dep(ecosystemTerraform, provider, version, group, "provider", relPath))
		}
	}
}

func stringAttr(attr *hcl.Attribute) string {
	if attr == nil {
		return ""
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return ""
	}
	return ctyString(val)
}

func ctyString(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return ""
	}
	return strings.TrimSpace(v.AsString())
}

package templating

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// FieldRule is the client-side check generated for one form field.
type FieldRule struct {
	Name     string `json:"name"`
	DomID    string `json:"domId"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Pattern  string `json:"pattern,omitempty"`
	Message  string `json:"message,omitempty"`
}

// FormBinding wires one form component: its validation rules and, when a
// table is near, the table body that receives a row per submission.
type FormBinding struct {
	ComponentID string      `json:"componentId"`
	FormID      string      `json:"formId"`
	ModalID     string      `json:"modalId"`
	Fields      []FieldRule `json:"fields"`
	TableBodyID string      `json:"tableBodyId,omitempty"`
	// Columns holds, per table column, the name of the field whose value
	// fills that cell; "" leaves the cell empty.
	Columns []string `json:"columns,omitempty"`
}

// ScriptConfig is everything the script bundle is generated from.
type ScriptConfig struct {
	Forms []FormBinding `json:"forms"`
}

func (c ScriptConfig) hasTables() bool {
	for _, f := range c.Forms {
		if f.TableBodyID != "" {
			return true
		}
	}
	return false
}

// The bundle is plain JavaScript written out as script.js, so it is built
// with text/template. The only interpolated value is the JSON config, and
// json.Marshal escapes <, > and & so it is also safe inline.
var scriptTemplate = template.Must(template.New("script").Parse(`(function () {
  "use strict";

  function ready(fn) {
    if (document.readyState !== "loading") {
      fn();
    } else {
      document.addEventListener("DOMContentLoaded", fn);
    }
  }
{{- if .Forms }}

  var config = {{ .Config }};
  var emailPattern = /^[^\s@]+@[^\s@]+\.[^\s@]+$/;

  function fieldValue(form, rule) {
    if (rule.type === "radio") {
      var checked = form.querySelector("input[name='" + rule.name + "']:checked");
      return checked ? checked.value : "";
    }
    if (rule.type === "checkbox") {
      var values = [];
      form.querySelectorAll("input[name='" + rule.name + "']:checked").forEach(function (el) {
        values.push(el.value);
      });
      return values.join(", ");
    }
    var el = document.getElementById(rule.domId);
    return el ? el.value.trim() : "";
  }

  function showError(rule, message) {
    var el = document.getElementById(rule.domId);
    var feedback = document.getElementById(rule.domId + "-error");
    if (el) {
      el.classList.toggle("is-invalid", message !== "");
    }
    if (feedback) {
      feedback.textContent = message;
      feedback.style.display = message === "" ? "none" : "block";
    }
  }

  function check(rule, value) {
    if (value === "") {
      return rule.required ? (rule.label || rule.name) + " is required" : "";
    }
    if (rule.type === "email" && !emailPattern.test(value)) {
      return rule.message || "Enter a valid email address";
    }
    if (rule.pattern) {
      try {
        if (!new RegExp(rule.pattern).test(value)) {
          return rule.message || (rule.label || rule.name) + " is invalid";
        }
      } catch (e) {
        return "";
      }
    }
    return "";
  }
{{- if .HasTables }}

  function appendRow(binding, values) {
    var body = document.getElementById(binding.tableBodyId);
    if (!body) {
      return;
    }
    var row = document.createElement("tr");
    binding.columns.forEach(function (name) {
      var cell = document.createElement("td");
      cell.textContent = name ? (values[name] || "") : "";
      row.appendChild(cell);
    });
    body.appendChild(row);
  }
{{- end }}

  function bindForm(binding) {
    var form = document.getElementById(binding.formId);
    if (!form) {
      return;
    }
    binding.fields.forEach(function (rule) {
      form.addEventListener("input", function (ev) {
        if (ev.target && ev.target.name === rule.name) {
          showError(rule, check(rule, fieldValue(form, rule)));
        }
      });
    });
    form.addEventListener("submit", function (ev) {
      ev.preventDefault();
      var values = {};
      var valid = true;
      binding.fields.forEach(function (rule) {
        var value = fieldValue(form, rule);
        var message = check(rule, value);
        showError(rule, message);
        if (message !== "") {
          valid = false;
        }
        values[rule.name] = value;
      });
      if (!valid) {
        return;
      }
{{- if .HasTables }}
      if (binding.tableBodyId) {
        appendRow(binding, values);
      }
{{- end }}
      form.reset();
      var modal = document.getElementById(binding.modalId);
      if (modal && window.bootstrap && window.bootstrap.Modal) {
        window.bootstrap.Modal.getOrCreateInstance(modal).hide();
      }
    });
  }
{{- end }}

  ready(function () {
    document.documentElement.classList.add("pb-ready");
{{- if .Forms }}
    config.forms.forEach(bindForm);
{{- end }}
  });
})();
`))

// RenderScript builds the script bundle for cfg. With no forms the result
// is a reduced bundle that only marks the page ready; with forms but no
// tables the row-append routine is left out.
func RenderScript(cfg ScriptConfig) (string, error) {
	if cfg.Forms == nil {
		cfg.Forms = []FormBinding{}
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode script config: %w", err)
	}
	var buf bytes.Buffer
	err = scriptTemplate.Execute(&buf, struct {
		Forms     []FormBinding
		HasTables bool
		Config    string
	}{cfg.Forms, cfg.hasTables(), string(data)})
	if err != nil {
		return "", fmt.Errorf("failed to execute script template: %w", err)
	}
	return buf.String(), nil
}

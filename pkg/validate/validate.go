// Package validate checks that a resolved document has the shape the
// external trainer expects.
package validate

import (
	"fmt"
	"math"
	"strings"

	"github.com/samogod/tunecfg/pkg/document"
)

// Issue is a single problem found in a resolved document.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Error collects the issues of a failed validation.
type Error struct {
	Issues []Issue
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return fmt.Sprintf("invalid configuration: %s", strings.Join(parts, "; "))
}

type checker struct {
	doc    document.Document
	issues []Issue
}

// Validate returns every issue found in doc, in a fixed order.
func Validate(doc document.Document) []Issue {
	c := &checker{doc: doc}

	c.nonEmptyString("train_data_path", true)
	c.nonEmptyString("validation_data_path", true)
	c.positiveInt("data_loader.batch_size", true)
	c.boolean("data_loader.shuffle")

	c.positiveInt("trainer.num_epochs", true)
	c.nonNegativeInt("trainer.patience")
	c.integer("trainer.cuda_device")
	c.positiveNumber("trainer.grad_norm", false)
	c.positiveInt("trainer.num_gradient_accumulation_steps", false)
	c.validationMetric()
	c.nonEmptyString("trainer.optimizer.type", true)
	c.positiveNumber("trainer.optimizer.lr", true)
	c.nonNegativeNumber("trainer.optimizer.weight_decay")
	c.nonEmptyString("trainer.learning_rate_scheduler.type", false)
	c.nonNegativeInt("trainer.learning_rate_scheduler.warmup_steps")

	for _, seed := range []string{"random_seed", "numpy_seed", "pytorch_seed"} {
		c.integer(seed)
	}

	if _, ok := doc.Get("dataset_reader"); ok {
		c.nonEmptyString("dataset_reader.type", true)
		c.datasetReader()
	}

	return c.issues
}

// Check is Validate returning an *Error when any issue is found.
func Check(doc document.Document) error {
	if issues := Validate(doc); len(issues) > 0 {
		return &Error{Issues: issues}
	}
	return nil
}

func (c *checker) add(path, format string, args ...any) {
	c.issues = append(c.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) get(path string, required bool) (any, bool) {
	v, ok := c.doc.Get(path)
	if !ok && required {
		c.add(path, "required")
	}
	return v, ok
}

func (c *checker) nonEmptyString(path string, required bool) {
	v, ok := c.get(path, required)
	if !ok {
		return
	}
	s, isString := v.(string)
	if !isString || strings.TrimSpace(s) == "" {
		c.add(path, "must be a non-empty string")
	}
}

func (c *checker) boolean(path string) {
	v, ok := c.get(path, false)
	if !ok {
		return
	}
	if _, isBool := v.(bool); !isBool {
		c.add(path, "must be a boolean, got %s", document.TypeName(v))
	}
}

// intValue accepts int64 and integral float64 values.
func intValue(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return int64(t), true
		}
	}
	return 0, false
}

func numberValue(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func (c *checker) integer(path string) {
	v, ok := c.get(path, false)
	if !ok {
		return
	}
	if _, isInt := intValue(v); !isInt {
		c.add(path, "must be an integer, got %v", v)
	}
}

func (c *checker) positiveInt(path string, required bool) {
	v, ok := c.get(path, required)
	if !ok {
		return
	}
	if i, isInt := intValue(v); !isInt || i <= 0 {
		c.add(path, "must be a positive integer, got %v", v)
	}
}

func (c *checker) nonNegativeInt(path string) {
	v, ok := c.get(path, false)
	if !ok {
		return
	}
	if i, isInt := intValue(v); !isInt || i < 0 {
		c.add(path, "must be a non-negative integer, got %v", v)
	}
}

func (c *checker) positiveNumber(path string, required bool) {
	v, ok := c.get(path, required)
	if !ok {
		return
	}
	if f, isNum := numberValue(v); !isNum || f <= 0 {
		c.add(path, "must be a positive number, got %v", v)
	}
}

func (c *checker) nonNegativeNumber(path string) {
	v, ok := c.get(path, false)
	if !ok {
		return
	}
	if f, isNum := numberValue(v); !isNum || f < 0 {
		c.add(path, "must be a non-negative number, got %v", v)
	}
}

func (c *checker) validationMetric() {
	const path = "trainer.validation_metric"
	v, ok := c.get(path, false)
	if !ok {
		return
	}
	s, _ := v.(string)
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') {
		c.add(path, "must be a metric name prefixed with + (maximize) or - (minimize), got %v", v)
	}
}

// datasetReader checks the options of span-based readers such as
// conll_exhaustive, where every sequence reserves two special tokens.
func (c *checker) datasetReader() {
	if v, ok := c.doc.Get("dataset_reader.max_sequence_length"); ok {
		if i, isInt := intValue(v); !isInt || i <= 2 {
			c.add("dataset_reader.max_sequence_length", "must be an integer greater than 2, got %v", v)
		}
	}

	entity, hasEntity := c.doc.Get("dataset_reader.max_entity_length")
	mention, hasMention := c.doc.Get("dataset_reader.max_mention_length")
	if hasEntity {
		c.positiveInt("dataset_reader.max_entity_length", false)
	}
	if hasMention {
		c.positiveInt("dataset_reader.max_mention_length", false)
	}
	if hasEntity && hasMention {
		e, okE := intValue(entity)
		m, okM := intValue(mention)
		if okE && okM && m > e {
			c.add("dataset_reader.max_mention_length", "must not exceed max_entity_length (%d > %d)", m, e)
		}
	}

	if _, ok := c.doc.Get("dataset_reader.encoding"); ok {
		c.nonEmptyString("dataset_reader.encoding", false)
	}
	c.boolean("dataset_reader.use_entity_feature")
}

package frames

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openframes/framehost/internal/htmlmeta"
)

// buttonSlot gathers the raw tag values for one button index before
// validation. A nil pointer field means the tag never appeared.
type buttonSlot struct {
	label   *string
	action  *string
	target  *string
	postURL *string
}

// parseButtons extracts the 1-4 indexed buttons declared under prefix
// ("fc:frame:button" or "of:button") from the tag soup. All structural and
// per-action problems are reported through r; the returned slice is the dense
// compaction of slots that validated, in index order. Gap detection is
// diagnostic only and never removes buttons from the output.
func parseButtons(tags []htmlmeta.Tag, prefix string, r *Reporter) []FrameButton {
	var slots [MaxButtons]*buttonSlot
	seen := map[string]bool{}

	for _, tag := range tags {
		if !strings.HasPrefix(tag.Name, prefix+":") {
			continue
		}
		if seen[tag.Name] {
			r.Error(tag.Name, "Duplicate meta tag")
			continue
		}
		seen[tag.Name] = true

		rest := strings.TrimPrefix(tag.Name, prefix+":")
		parts := strings.SplitN(rest, ":", 2)
		idx, err := strconv.Atoi(parts[0])
		if err != nil || idx < 1 || idx > MaxButtons {
			r.Error(tag.Name, "Unrecognized meta tag")
			continue
		}
		slot := slots[idx-1]
		if slot == nil {
			slot = &buttonSlot{}
			slots[idx-1] = slot
		}
		content := tag.Content
		if len(parts) == 1 {
			slot.label = &content
			continue
		}
		switch parts[1] {
		case "action":
			slot.action = &content
		case "target":
			slot.target = &content
		case "post_url":
			slot.postURL = &content
		default:
			r.Error(tag.Name, "Unrecognized meta tag")
		}
	}

	var resolved [MaxButtons]*FrameButton
	for i, slot := range slots {
		if slot == nil {
			continue
		}
		key := func(suffix string) string {
			if suffix == "" {
				return fmt.Sprintf("%s:%d", prefix, i+1)
			}
			return fmt.Sprintf("%s:%d:%s", prefix, i+1, suffix)
		}
		if slot.label == nil {
			r.Error(key(""), "Missing button label")
			continue
		}
		button := FrameButton{Action: ActionPost, Label: *slot.label}
		if slot.action != nil {
			button.Action = *slot.action
		}
		if b, ok := resolveButtonAction(button, slot, key, r); ok {
			resolved[i] = &b
		}
	}

	// Buttons must occupy a contiguous range starting at index 1; report the
	// first populated slot that follows an empty one.
	for i := 1; i < MaxButtons; i++ {
		if resolved[i] != nil && resolved[i-1] == nil {
			r.Error(fmt.Sprintf("%s:%d", prefix, i+1), "Button sequence is not continuous")
			break
		}
	}

	var out []FrameButton
	for _, b := range resolved {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}

// resolveButtonAction applies the per-action field requirements. A false
// return means the slot is disqualified and contributes no button.
func resolveButtonAction(button FrameButton, slot *buttonSlot, key func(string) string, r *Reporter) (FrameButton, bool) {
	switch button.Action {
	case ActionLink:
		if slot.target == nil {
			r.Error(key("target"), "Missing button target")
			return button, false
		}
		target, err := validateURL(*slot.target, 0)
		if err != nil {
			r.Error(key("target"), err.Error())
			return button, false
		}
		button.Target = target
	case ActionMint:
		if slot.target == nil {
			r.Error(key("target"), "Missing button target")
			return button, false
		}
		target, err := validateCAIP10(*slot.target)
		if err != nil {
			r.Error(key("target"), err.Error())
			return button, false
		}
		button.Target = target
	case ActionTx:
		if slot.target == nil {
			r.Error(key("target"), "Missing button target")
			return button, false
		}
		target, err := validateURL(*slot.target, 0)
		if err != nil {
			r.Error(key("target"), err.Error())
			return button, false
		}
		button.Target = target
		if slot.postURL != nil {
			postURL, err := validateURL(*slot.postURL, 0)
			if err != nil {
				r.Error(key("post_url"), err.Error())
				return button, false
			}
			button.PostURL = postURL
		}
	case ActionPost, ActionPostRedirect:
		if slot.target != nil {
			target, err := validateURL(*slot.target, 0)
			if err != nil {
				r.Error(key("target"), err.Error())
				return button, false
			}
			button.Target = target
		}
		if slot.postURL != nil {
			postURL, err := validateURL(*slot.postURL, 0)
			if err != nil {
				r.Error(key("post_url"), err.Error())
				return button, false
			}
			button.PostURL = postURL
		}
	default:
		r.Error(key("action"), "Invalid button action")
		return button, false
	}
	return button, true
}

package tools

import (
	"context"

	"github.com/boxcoder/boxcoder/internal/sandbox"
)

// DeleteTool moves a file or directory to the trash, or removes it for good.
type DeleteTool struct {
	trash *sandbox.Trash
}

// NewDeleteTool creates the delete tool.
func NewDeleteTool(sb *sandbox.Sandbox) *DeleteTool {
	return &DeleteTool{trash: sandbox.NewTrash(sb)}
}

func (t *DeleteTool) Kind() Kind { return KindDelete }

func (t *DeleteTool) Description() string {
	return "Deletes a file or directory inside the working directory. Requires confirm=true. " +
		"By default the target is moved to .trash/; permanent=true removes it irreversibly."
}

func (t *DeleteTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"file_path": stringProp("The file or directory to delete, relative to the working directory."),
		"confirm":   boolProp("Must be true for the deletion to happen."),
		"permanent": boolProp("Remove instead of moving to .trash/. Defaults to false."),
	}, "file_path", "confirm")
}

type deleteArgs struct {
	FilePath  string `json:"file_path"`
	Confirm   bool   `json:"confirm"`
	Permanent bool   `json:"permanent"`
}

func (a *deleteArgs) validate() error {
	if a.FilePath == "" {
		return missingArg("file_path")
	}
	return nil
}

func (t *DeleteTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	args, err := decodeArgs[deleteArgs](params)
	if err != nil {
		return "", err
	}
	return t.trash.Delete(args.FilePath, args.Confirm, args.Permanent)
}

package filesystem

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/tenantfs/internal/shared/paths"
	"go.uber.org/zap"
)

// resolve maps a tenant-relative path through the sandbox. Escapes are
// logged as security events. Paths inside temp workspaces are refused.
func (ops *FilesystemOps) resolve(ctx context.Context, tenantID, relativePath string) (paths.SandboxedPath, error) {
	p, err := ops.Sandbox.Resolve(ctx, tenantID, relativePath)
	if err != nil {
		if paths.IsPathEscape(err) {
			ops.Logger.Security("path_escape",
				zap.String("tenant", tenantID),
				zap.String("path", relativePath))
			ops.Metrics.RecordPathEscape("request")
		}
		return paths.SandboxedPath{}, err
	}
	if err := paths.CheckReserved(p); err != nil {
		return paths.SandboxedPath{}, err
	}
	return p, nil
}

// resolveTarget is resolve for operations that must not touch the root itself
func (ops *FilesystemOps) resolveTarget(ctx context.Context, tenantID, relativePath string) (paths.SandboxedPath, error) {
	p, err := ops.resolve(ctx, tenantID, relativePath)
	if err != nil {
		return p, err
	}
	if p.IsRoot() {
		return paths.SandboxedPath{}, fmt.Errorf("%w: operation not permitted on the tenant root", ErrInvalidPath)
	}
	return p, nil
}

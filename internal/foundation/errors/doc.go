// Package errors provides the classified error primitives used across sitegen.
//
// A ClassifiedError carries a broad category (config, validation, build,
// plugin, ...), a severity and a retry hint alongside the usual message and
// cause. Errors are created through the fluent ErrorBuilder:
//
//	err := errors.NewError(errors.CategoryConfig, "unknown plugin").
//		WithContext("plugin", name).
//		WithCause(parseErr).
//		Build()
//
// The CLI adapter maps categories onto process exit codes and decides how much
// detail is shown to the user.
package errors

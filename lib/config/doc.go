// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the areasearch
// client and simulator.
//
// Configuration is loaded from a single file specified by either the
// AREASEARCH_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no discovery and no fallback search
// path. Files ending in .json or .jsonc are accepted alongside YAML;
// comments and trailing commas are stripped before decoding.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. Production
// logs at info level and waits longer for replies.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${AREASEARCH_STATE}, and ${VAR:-default} patterns are
// expanded.
//
// Durations are strings in [time.ParseDuration] form. The accessor
// methods on [SearchConfig] and [NamesConfig] return parsed values;
// [Config.Validate] reports every malformed or non-positive field at
// once.
package config

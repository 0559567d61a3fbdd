// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package version

// Version is the server version. Overridden at build time with -ldflags.
var Version = "0.1.0"

// ServerName is the name advertised to MCP clients.
const ServerName = "azure-ai-foundry"

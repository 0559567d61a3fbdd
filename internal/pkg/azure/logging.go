// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

package azure

import (
	"log"

	azlog "github.com/Azure/azure-sdk-for-go/sdk/azcore/log"
)

// EnableSDKLogging forwards Azure SDK request, response and retry events to the standard logger.
func EnableSDKLogging() {
	azlog.SetEvents(azlog.EventRequest, azlog.EventResponse, azlog.EventRetryPolicy, azlog.EventLRO)
	azlog.SetListener(func(event azlog.Event, msg string) {
		log.Printf("[azsdk:%s] %s", event, msg)
	})
}

// DisableSDKLogging removes the listener installed by EnableSDKLogging.
func DisableSDKLogging() {
	azlog.SetListener(nil)
}

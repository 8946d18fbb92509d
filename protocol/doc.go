package protocol

// This package implements building, parsing and serialising the JSON payloads
// exchanged with a game console over a websocket.
//
// Every message, in both directions, is a single JSON text frame with a
// `header` and a `body`:
//
//   ```
//   {
//     "header": {
//       "version": 1,
//       "requestId": "<uuid>",
//       "eventName": "<name>",
//       "messageType": "commandRequest",
//       "messagePurpose": "commandRequest"
//     },
//     "body": { ... }
//   }
//   ```
//
// - `requestId` is present on command requests and their responses.
// - `eventName` is present on event subscribe/unsubscribe requests and on
//   event deliveries pushed by the console.
//
// As the console pushes events whenever they happen, event deliveries can
// interleave with command responses. Responses are matched to requests by
// echoing the request's `requestId`, events are matched to subscribers by
// their `eventName`.
//
// === Command request
//
//   ```
//   > {"header":{"version":1,"requestId":"<uuid>","messageType":"commandRequest","messagePurpose":"commandRequest"},
//   >  "body":{"version":1,"origin":{"type":"player"},"overworld":"default","commandLine":"say hi"}}
//   < {"header":{"version":1,"requestId":"<uuid>","messagePurpose":"commandResponse"},
//   <  "body":{"statusCode":0,"statusMessage":"..."}}
//   ```
//
// A non-zero `statusCode` means the console rejected the command.
//
// === Subscribe / Unsubscribe
//
//   ```
//   > {"header":{...,"messagePurpose":"subscribe"},"body":{"eventName":"PlayerMessage"}}
//   < {"header":{"eventName":"PlayerMessage","messagePurpose":"event"},"body":{...}}
//   ```
//
// Payloads are produced by named builders held in a Registry. Builders may
// compose other builders by name, see Builders for the defaults.

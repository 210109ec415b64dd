//
// Copyright (c) 2025 Markku Rossi
//
// All rights reserved.
//

package kep

// DefaultProviderPort is the default port of the provider endpoint.
const DefaultProviderPort = "14000"

// FieldTypePrime is the handshake type tag of prime fields.
const FieldTypePrime = 'p'

// Provider connection handshake:
//
//	provider -> party: identity uint32
//	party -> provider: type tag uint32, modulus data
//	provider -> party: terminal flag uint32
//
// Input sharing for each wire slot of length L:
//
//	party -> provider: L uint32, L triples (a, b, c) of field elements
//	provider -> party: L uint32, L field elements x+a
//
// Result delivery:
//
//	party -> provider: donor v, r, v*r, patient v, r, v*r

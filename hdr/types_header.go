/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package hdr implements the HTTP header map the core engine hands to
// middleware, handlers and the response writer.
//
// Unlike net/http's Header (a bare map[string][]string), Header here keeps
// an insertion-ordered slice of pairs alongside a case-insensitive index, so
// that Add never reorders previously-seen keys and iteration always yields
// the wire order the client or handler produced. That ordering is an
// invariant of the request/response model, not an implementation detail.
package hdr

import (
	"strings"
	"time"
)

const (
	toLower = 'a' - 'A'

	Accept                  = "Accept"
	AcceptCharset           = "Accept-Charset"
	AcceptEncoding          = "Accept-Encoding"
	AcceptLanguage          = "Accept-Language"
	AcceptRanges            = "Accept-Ranges"
	Allow                   = "Allow"
	Authorization           = "Authorization"
	CacheControl            = "Cache-Control"
	Cc                      = "Cc"
	Connection              = "Connection"
	ContentEncoding         = "Content-Encoding"
	ContentId               = "Content-Id"
	ContentLanguage         = "Content-Language"
	ContentLength           = "Content-Length"
	ContentRange            = "Content-Range"
	ContentTransferEncoding = "Content-Transfer-Encoding"
	ContentType             = "Content-Type"
	CookieHeader            = "Cookie"
	Date                    = "Date"
	DkimSignature           = "Dkim-Signature"
	Etag                    = "Etag"
	Expires                 = "Expires"
	Expect                  = "Expect"
	From                    = "From"
	Host                    = "Host"
	IfModifiedSince         = "If-Modified-Since"
	IfNoneMatch             = "If-None-Match"
	InReplyTo               = "In-Reply-To"
	LastModified            = "Last-Modified"
	Location                = "Location"
	MessageId               = "Message-Id"
	MimeVersion             = "Mime-Version"
	Pragma                  = "Pragma"
	Received                = "Received"
	Referer                 = "Referer"
	ReturnPath              = "Return-Path"
	SecWebSocketAccept      = "Sec-WebSocket-Accept"
	SecWebSocketKey         = "Sec-WebSocket-Key"
	SecWebSocketProtocol    = "Sec-WebSocket-Protocol"
	SecWebSocketVersion     = "Sec-WebSocket-Version"
	ServerHeader            = "Server"
	SetCookieHeader         = "Set-Cookie"
	Subject                 = "Subject"
	TransferEncoding        = "Transfer-Encoding"
	To                      = "To"
	Trailer                 = "Trailer"
	UpgradeHeader           = "Upgrade"
	UserAgent               = "User-Agent"
	Via                     = "Via"
	XForwardedFor           = "X-Forwarded-For"
	XImforwards             = "X-Imforwards"
	XPoweredBy              = "X-Powered-By"

	TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
)

var (
	timeFormats = []string{
		TimeFormat,
		time.RFC850,
		time.ANSIC,
	}

	HeaderNewlineToSpace = strings.NewReplacer("\n", " ", "\r", " ")

	// commonHeader interns common canonical header strings so repeated
	// canonicalization of the same key name doesn't allocate.
	commonHeader = make(map[string]string)

	// isTokenTable mirrors RFC 7230's token character class.
	isTokenTable = [127]bool{
		'0': true, '1': true, '2': true, '3': true, '4': true, '5': true, '6': true, '7': true,
		'8': true, '9': true,

		'a': true, 'b': true, 'c': true, 'd': true, 'e': true, 'f': true, 'g': true, 'h': true,
		'i': true, 'j': true, 'k': true, 'l': true, 'm': true, 'n': true, 'o': true, 'p': true,
		'q': true, 'r': true, 's': true, 't': true, 'u': true, 'v': true, 'w': true, 'x': true,
		'y': true, 'z': true,

		'A': true, 'B': true, 'C': true, 'D': true, 'E': true, 'F': true, 'G': true, 'H': true,
		'I': true, 'J': true, 'K': true, 'L': true, 'M': true, 'N': true, 'O': true, 'P': true,
		'Q': true, 'R': true, 'S': true, 'T': true, 'U': true, 'V': true, 'W': true, 'X': true,
		'Y': true, 'Z': true,

		'!': true, '#': true, '$': true, '%': true, '&': true, '\'': true, '*': true, '+': true,
		'-': true, '.': true, '^': true, '_': true, '`': true, '|': true, '~': true,
	}
)

func init() {
	for _, v := range []string{
		Accept, AcceptCharset, AcceptEncoding, AcceptLanguage, AcceptRanges, Allow,
		Authorization, CacheControl, Cc, Connection, ContentEncoding, ContentId,
		ContentLanguage, ContentLength, ContentRange, ContentTransferEncoding,
		ContentType, CookieHeader, Date, DkimSignature, Etag, Expires, Expect,
		From, Host, IfModifiedSince, IfNoneMatch, InReplyTo, LastModified,
		Location, MessageId, MimeVersion, Pragma, Received, Referer, ReturnPath,
		SecWebSocketAccept, SecWebSocketKey, SecWebSocketProtocol, SecWebSocketVersion,
		ServerHeader, SetCookieHeader, Subject, TransferEncoding, To, Trailer,
		UpgradeHeader, UserAgent, Via, XForwardedFor, XImforwards, XPoweredBy,
	} {
		commonHeader[v] = v
	}
}

type (
	// pair is one (key, value) entry in wire/insertion order. key is stored
	// already canonicalized so lookups never re-canonicalize on read.
	pair struct {
		key   string
		value string
	}

	// Header is an insertion-ordered, case-insensitive multimap of HTTP
	// header fields. The zero value is an empty Header ready to use; Make
	// preallocates room for a known number of fields.
	Header struct {
		pairs []pair
		// index maps a canonical key to the positions in pairs holding it,
		// in the order they were added.
		index map[string][]int
	}
)

// Copyright (c) 2020 The Decred developers
// Copyright (c) 2024 The Lotus developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package progresslog provides periodic logging for chain activation and header
processing.

## Feature Overview

- Maintains cumulative totals about activated blocks between each logging
  interval
  - Total number of blocks
  - Total number of transactions
- Maintains the cumulative number of processed headers between intervals
- Logs all cumulative data every 10 seconds along with the estimated
  verification progress supplied by the caller
- Immediately logs any outstanding data when forced
*/
package progresslog

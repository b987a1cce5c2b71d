package voicemodel

import "time"

// nowFunc はタイムスタンプ生成に使用する時刻関数。テストで差し替える。
var nowFunc = time.Now

/*
Package quiz 提供测验业务：基于结构化生成器出题、判题与主题分类。

# 概述

Service 将 structured.Generator 的批量模式用于出题：每道题对应一条
相同的 user 指令，生成结果按输入顺序写入一局 Game。单选题的选项由
正确答案与三个干扰项洗牌得到。

判题规则:

  - mcq: 小写并去除首尾空白后比较，返回 isCorrect
  - open_ended: round(100 * (maxLen - 编辑距离) / maxLen)，返回 percentageSimilar

# 存储

GormRepository 基于 internal/database.PoolManager，创建游戏、题目与
主题计数在同一事务内完成。CachedStore 为题目读取提供 Redis 旁路缓存。
*/
package quiz
